package webauthn

import "errors"

// Error taxonomy for ceremony failures. Verification errors are terminal for
// the ceremony instance; the client must restart with a fresh Begin. Store and
// repository errors are transient and safe to retry.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrNoCredentials          = errors.New("user has no registered credentials")
	ErrDuplicateUser          = errors.New("user already exists")
	ErrDuplicateCredential    = errors.New("credential already registered")
	ErrCredentialNotFound     = errors.New("credential not found")
	ErrCredentialUserMismatch = errors.New("credential does not belong to user")
	ErrChallengeExpired       = errors.New("challenge expired or missing")
	ErrChallengeMismatch      = errors.New("challenge mismatch")
	ErrOriginMismatch         = errors.New("origin mismatch")
	ErrRPIDMismatch           = errors.New("relying party id mismatch")
	ErrSignatureInvalid       = errors.New("signature verification failed")
	ErrCounterRegression      = errors.New("sign counter regression, possible cloned authenticator")
	ErrUserNotVerified        = errors.New("user verification flag not set")
	ErrMalformedResponse      = errors.New("malformed authenticator response")
	ErrStoreUnavailable       = errors.New("challenge store unavailable")
	ErrRepoUnavailable        = errors.New("credential repository unavailable")
)

// IsVerificationFailure reports whether err is one of the terminal
// verification errors, as opposed to a transient infrastructure failure.
func IsVerificationFailure(err error) bool {
	for _, e := range []error{
		ErrChallengeMismatch, ErrOriginMismatch, ErrRPIDMismatch,
		ErrSignatureInvalid, ErrCounterRegression, ErrUserNotVerified,
		ErrCredentialUserMismatch,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
