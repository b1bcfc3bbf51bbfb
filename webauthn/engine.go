package webauthn

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

const (
	// ChallengeLength is the entropy of a fresh ceremony challenge.
	ChallengeLength = 32

	// DefaultChallengeTTL bounds how long a Begun ceremony may stay open.
	DefaultChallengeTTL = 300 * time.Second

	userVerificationRequired = "required"
	residentKeyPreferred     = "preferred"
	credentialTypePublicKey  = "public-key"
)

// Config identifies the relying party the engine performs ceremonies for.
type Config struct {
	RPID         string
	RPName       string
	RPOrigins    []string
	ChallengeTTL time.Duration
}

// Engine orchestrates the four ceremony operations and performs all
// cryptographic and consistency verification. It keeps no state of its own;
// in-flight ceremonies live in the ChallengeStore, credentials in the
// repository.
type Engine struct {
	cfg    Config
	states ChallengeStore
	creds  CredentialRepository
	tokens TokenIssuer
}

// NewEngine wires an engine. tokens may be nil when the caller does not hand
// out tokens after login.
func NewEngine(cfg Config, states ChallengeStore, creds CredentialRepository, tokens TokenIssuer) (*Engine, error) {
	if cfg.RPID == "" || len(cfg.RPOrigins) == 0 {
		return nil, errors.New("webauthn: RPID and at least one origin required")
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	return &Engine{cfg: cfg, states: states, creds: creds, tokens: tokens}, nil
}

func newChallenge() ([]byte, error) {
	c := make([]byte, ChallengeLength)
	if _, err := rand.Read(c); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return c, nil
}

// RegisterBegin starts a registration ceremony. The user is created on first
// contact; credentials already bound to the account land on the exclude list
// so the same authenticator cannot be registered twice.
func (e *Engine) RegisterBegin(ctx context.Context, username, displayName string) (*CreationOptions, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrMalformedResponse)
	}
	if displayName == "" {
		displayName = username
	}

	user, err := e.creds.FindUser(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		user, err = e.creds.CreateUser(ctx, username, displayName)
		if errors.Is(err, ErrDuplicateUser) {
			// Lost a create race; the row exists now.
			user, err = e.creds.FindUser(ctx, username)
		}
	}
	if err != nil {
		return nil, err
	}

	existing, err := e.creds.ListCredentials(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	state := &ChallengeState{
		Kind:             CeremonyRegistration,
		Challenge:        challenge,
		RPID:             e.cfg.RPID,
		UserID:           user.ID,
		UserVerification: userVerificationRequired,
		CreatedAt:        time.Now().Unix(),
	}
	if err := e.states.Put(ctx, CeremonyRegistration, username, state, e.cfg.ChallengeTTL); err != nil {
		return nil, err
	}

	params := make([]CredentialParameter, 0, len(AcceptedAlgorithms()))
	for _, alg := range AcceptedAlgorithms() {
		params = append(params, CredentialParameter{Type: credentialTypePublicKey, Alg: alg})
	}

	return &CreationOptions{
		RP:                 RPEntity{ID: e.cfg.RPID, Name: e.cfg.RPName},
		User:               UserEntity{ID: []byte(user.ID), Name: user.Username, DisplayName: user.DisplayName},
		Challenge:          challenge,
		PubKeyCredParams:   params,
		Timeout:            uint64(e.cfg.ChallengeTTL / time.Millisecond),
		ExcludeCredentials: descriptors(existing),
		AuthenticatorSelection: AuthenticatorSelection{
			ResidentKey:      residentKeyPreferred,
			UserVerification: userVerificationRequired,
		},
		Attestation: "none",
	}, nil
}

// RegisterFinish consumes the outstanding registration challenge, verifies
// the attestation response and persists the new credential.
func (e *Engine) RegisterFinish(ctx context.Context, username string, resp *RegistrationResponse) (*Credential, error) {
	state, err := e.states.Pop(ctx, CeremonyRegistration, username)
	if err != nil {
		return nil, err
	}

	clientData, err := parseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	if err := clientData.verify(ceremonyTypeCreate, state.Challenge, e.cfg.RPOrigins); err != nil {
		return nil, err
	}

	attObj, err := parseAttestationObject(resp.Response.AttestationObject)
	if err != nil {
		return nil, err
	}
	authData, err := ParseAuthenticatorData(attObj.AuthData)
	if err != nil {
		return nil, err
	}
	if err := e.verifyAuthData(authData, state.UserVerification); err != nil {
		return nil, err
	}
	if len(authData.CredentialID) == 0 || len(authData.PublicKey) == 0 {
		return nil, fmt.Errorf("%w: no attested credential data", ErrMalformedResponse)
	}
	if len(resp.RawID) > 0 && !bytes.Equal(resp.RawID, authData.CredentialID) {
		return nil, fmt.Errorf("%w: rawId does not match attested credential", ErrMalformedResponse)
	}

	cred := &Credential{
		ID:         authData.CredentialID,
		UserID:     state.UserID,
		PublicKey:  authData.PublicKey,
		SignCount:  authData.SignCount,
		AAGUID:     authData.AAGUID,
		Transports: resp.Transports,
	}
	if err := e.creds.InsertCredential(ctx, state.UserID, cred); err != nil {
		// A duplicate means this physical authenticator is already bound to
		// some account; never overwrite silently.
		return nil, err
	}
	return cred, nil
}

// AuthenticateBegin starts an authentication ceremony for a known user with
// at least one registered credential.
func (e *Engine) AuthenticateBegin(ctx context.Context, username string) (*RequestOptions, error) {
	user, err := e.creds.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	creds, err := e.creds.ListCredentials(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	allowed := make([][]byte, 0, len(creds))
	for _, c := range creds {
		allowed = append(allowed, c.ID)
	}

	state := &ChallengeState{
		Kind:             CeremonyAuthentication,
		Challenge:        challenge,
		RPID:             e.cfg.RPID,
		AllowedIDs:       allowed,
		UserVerification: userVerificationRequired,
		CreatedAt:        time.Now().Unix(),
	}
	if err := e.states.Put(ctx, CeremonyAuthentication, username, state, e.cfg.ChallengeTTL); err != nil {
		return nil, err
	}

	return &RequestOptions{
		Challenge:        challenge,
		Timeout:          uint64(e.cfg.ChallengeTTL / time.Millisecond),
		RPID:             e.cfg.RPID,
		AllowCredentials: descriptors(creds),
		UserVerification: userVerificationRequired,
	}, nil
}

// AuthenticateFinish consumes the outstanding authentication challenge,
// verifies the assertion against the stored credential and returns the token
// minted for the user. The counter update is durable before the token is
// handed out.
func (e *Engine) AuthenticateFinish(ctx context.Context, username string, resp *AssertionResponse) (string, error) {
	state, err := e.states.Pop(ctx, CeremonyAuthentication, username)
	if err != nil {
		return "", err
	}

	credID := []byte(resp.RawID)
	if len(credID) == 0 {
		return "", fmt.Errorf("%w: missing credential id", ErrMalformedResponse)
	}

	owner, cred, err := e.creds.FindCredentialByID(ctx, credID)
	if err != nil {
		return "", err
	}
	// The assertion must name a credential owned by the authenticating user
	// and scoped to this ceremony's allow list.
	if owner.Username != username || !containsID(state.AllowedIDs, credID) {
		return "", ErrCredentialUserMismatch
	}

	clientData, err := parseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return "", err
	}
	if err := clientData.verify(ceremonyTypeGet, state.Challenge, e.cfg.RPOrigins); err != nil {
		return "", err
	}

	authData, err := ParseAuthenticatorData(resp.Response.AuthenticatorData)
	if err != nil {
		return "", err
	}
	if err := e.verifyAuthData(authData, state.UserVerification); err != nil {
		return "", err
	}

	// The authenticator signed authData || SHA-256(clientDataJSON). The
	// algorithm is dispatched from the stored COSE key, never assumed.
	clientDataHash := sha256.Sum256(resp.Response.ClientDataJSON)
	signed := append(append([]byte{}, resp.Response.AuthenticatorData...), clientDataHash[:]...)
	if err := VerifySignature(cred.PublicKey, signed, resp.Response.Signature); err != nil {
		return "", err
	}

	// Counters are a clone heuristic: a stored nonzero counter must strictly
	// increase. Authenticators without counter support report zero forever.
	newCount := authData.SignCount
	if cred.SignCount > 0 && newCount <= cred.SignCount {
		return "", ErrCounterRegression
	}

	if err := e.creds.UpdateCounterAndLastUsed(ctx, credID, newCount, time.Now()); err != nil {
		return "", err
	}

	if e.tokens == nil {
		return "", nil
	}
	return e.tokens.Issue(ctx, username)
}

func (e *Engine) verifyAuthData(ad *AuthenticatorData, uvRequirement string) error {
	rpIDHash := sha256.Sum256([]byte(e.cfg.RPID))
	if !bytes.Equal(ad.RPIDHash, rpIDHash[:]) {
		return ErrRPIDMismatch
	}
	if !ad.UserPresent {
		return fmt.Errorf("%w: user presence flag not set", ErrUserNotVerified)
	}
	if uvRequirement == userVerificationRequired && !ad.UserVerified {
		return ErrUserNotVerified
	}
	return nil
}

func descriptors(creds []Credential) []CredentialDescriptor {
	out := make([]CredentialDescriptor, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialDescriptor{
			Type:       credentialTypePublicKey,
			ID:         c.ID,
			Transports: c.Transports,
		})
	}
	return out
}

func containsID(ids [][]byte, id []byte) bool {
	for _, candidate := range ids {
		if bytes.Equal(candidate, id) {
			return true
		}
	}
	return false
}
