package webauthn

// Types returned by the Begin operations, shaped after the standard WebAuthn
// JSON mapping so the HTTP layer can hand them straight to
// navigator.credentials.create()/get().

type RPEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserEntity struct {
	ID          URLEncodedBase64 `json:"id"`
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
}

type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

type CredentialDescriptor struct {
	Type       string           `json:"type"`
	ID         URLEncodedBase64 `json:"id"`
	Transports []string         `json:"transports,omitempty"`
}

type AuthenticatorSelection struct {
	ResidentKey      string `json:"residentKey,omitempty"`
	UserVerification string `json:"userVerification"`
}

// CreationOptions parameterizes navigator.credentials.create().
type CreationOptions struct {
	RP                     RPEntity               `json:"rp"`
	User                   UserEntity             `json:"user"`
	Challenge              URLEncodedBase64       `json:"challenge"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	Timeout                uint64                 `json:"timeout,omitempty"`
	ExcludeCredentials     []CredentialDescriptor `json:"excludeCredentials,omitempty"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	Attestation            string                 `json:"attestation"`
}

// RequestOptions parameterizes navigator.credentials.get().
type RequestOptions struct {
	Challenge        URLEncodedBase64       `json:"challenge"`
	Timeout          uint64                 `json:"timeout,omitempty"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
	UserVerification string                 `json:"userVerification"`
}

// RegistrationResponse is the client payload posted to RegisterFinish.
type RegistrationResponse struct {
	ID         string                  `json:"id"`
	RawID      URLEncodedBase64        `json:"rawId"`
	Type       string                  `json:"type"`
	Response   AttestationResponseData `json:"response"`
	Transports []string                `json:"transports,omitempty"`
}

type AttestationResponseData struct {
	ClientDataJSON    URLEncodedBase64 `json:"clientDataJSON"`
	AttestationObject URLEncodedBase64 `json:"attestationObject"`
}

// AssertionResponse is the client payload posted to AuthenticateFinish.
type AssertionResponse struct {
	ID       string                `json:"id"`
	RawID    URLEncodedBase64      `json:"rawId"`
	Type     string                `json:"type"`
	Response AssertionResponseData `json:"response"`
}

type AssertionResponseData struct {
	ClientDataJSON    URLEncodedBase64 `json:"clientDataJSON"`
	AuthenticatorData URLEncodedBase64 `json:"authenticatorData"`
	Signature         URLEncodedBase64 `json:"signature"`
	UserHandle        URLEncodedBase64 `json:"userHandle,omitempty"`
}
