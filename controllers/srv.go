package controllers

import (
	"errors"
	"net/http"

	"fido2backend/app"
	"fido2backend/token"
	"fido2backend/webauthn"
)

// Srv bundles the dependencies the handlers need. Repo is the interface so
// tests can wire the in-memory repository.
type Srv struct {
	Engine *webauthn.Engine
	Repo   webauthn.CredentialRepository
	Tokens *token.Issuer
}

func GetSrv(a *app.App) *Srv {
	return &Srv{Engine: a.Engine, Repo: a.Repo, Tokens: a.Tokens}
}

// statusFor maps engine errors onto HTTP statuses. Verification failures all
// collapse to a generic rejection; the precise kind stays in server logs.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, webauthn.ErrUserNotFound),
		errors.Is(err, webauthn.ErrNoCredentials),
		errors.Is(err, webauthn.ErrCredentialNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, webauthn.ErrDuplicateCredential):
		return http.StatusConflict, "credential already registered"
	case errors.Is(err, webauthn.ErrChallengeExpired):
		return http.StatusBadRequest, "ceremony state expired or missing"
	case errors.Is(err, webauthn.ErrMalformedResponse):
		return http.StatusBadRequest, "malformed request"
	case webauthn.IsVerificationFailure(err):
		return http.StatusUnauthorized, "verification failed"
	case errors.Is(err, webauthn.ErrStoreUnavailable),
		errors.Is(err, webauthn.ErrRepoUnavailable):
		return http.StatusServiceUnavailable, "temporarily unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
