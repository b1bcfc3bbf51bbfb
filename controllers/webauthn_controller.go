// controllers/webauthn_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fido2backend/app"
	"fido2backend/webauthn"
)

func opCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 3*time.Second)
}

func (s *Srv) rejected(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError || webauthn.IsVerificationFailure(err) {
		log.Printf("%s: %v", op, err)
	}
	c.JSON(status, app.H{"error": msg})
}

// ===== Registration =====

type registerStartReq struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
}

func (s *Srv) RegisterStart(c *gin.Context) {
	var in registerStartReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username required"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	opts, err := s.Engine.RegisterBegin(ctx, in.Username, in.DisplayName)
	if err != nil {
		s.rejected(c, "register start", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

type registerFinishReq struct {
	Username string `json:"username" binding:"required"`
	webauthn.RegistrationResponse
}

func (s *Srv) RegisterFinish(c *gin.Context) {
	var in registerFinishReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "malformed request"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	if _, err := s.Engine.RegisterFinish(ctx, in.Username, &in.RegistrationResponse); err != nil {
		s.rejected(c, "register finish", err)
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "ok"})
}

// ===== Authentication =====

type loginStartReq struct {
	Username string `json:"username" binding:"required"`
}

func (s *Srv) LoginStart(c *gin.Context) {
	var in loginStartReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username required"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	opts, err := s.Engine.AuthenticateBegin(ctx, in.Username)
	if err != nil {
		s.rejected(c, "login start", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

type loginFinishReq struct {
	Username string `json:"username" binding:"required"`
	webauthn.AssertionResponse
}

func (s *Srv) LoginFinish(c *gin.Context) {
	var in loginFinishReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "malformed request"})
		return
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	tok, err := s.Engine.AuthenticateFinish(ctx, in.Username, &in.AssertionResponse)
	if err != nil {
		s.rejected(c, "login finish", err)
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "ok", "token": tok})
}
