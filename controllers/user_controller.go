package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"fido2backend/app"
)

func callerUsername(c *gin.Context) (string, bool) {
	v, ok := c.Get("username")
	if !ok {
		return "", false
	}
	username, _ := v.(string)
	return username, username != ""
}

func (s *Srv) WhoAmI(c *app.Ctx) {
	username, ok := callerUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, app.H{"username": username})
}

// ListCredentials returns metadata for the caller's passkeys. Key material
// never leaves the server.
func (s *Srv) ListCredentials(c *app.Ctx) {
	username, ok := callerUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	user, err := s.Repo.FindUser(ctx, username)
	if err != nil {
		s.rejected(c, "list credentials", err)
		return
	}
	creds, err := s.Repo.ListCredentials(ctx, user.ID)
	if err != nil {
		s.rejected(c, "list credentials", err)
		return
	}

	out := make([]app.H, 0, len(creds))
	for _, cred := range creds {
		out = append(out, app.H{
			"credentialId": base64.RawURLEncoding.EncodeToString(cred.ID),
			"signCount":    cred.SignCount,
			"transports":   cred.Transports,
			"lastUsedAt":   cred.LastUsedAt,
		})
	}
	c.JSON(http.StatusOK, app.H{"credentials": out})
}

// DeleteMe removes the caller's account and, with it, every credential.
func (s *Srv) DeleteMe(c *app.Ctx) {
	username, ok := callerUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	user, err := s.Repo.FindUser(ctx, username)
	if err != nil {
		s.rejected(c, "delete user", err)
		return
	}
	if err := s.Repo.DeleteUser(ctx, user.ID); err != nil {
		s.rejected(c, "delete user", err)
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "ok"})
}
