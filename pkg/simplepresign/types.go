package simplepresign

import (
	"net/http"
	"time"
)

// DefaultContentType is used when the caller does not supply a content type.
const DefaultContentType = "application/octet-stream"

// DefaultExpiry is the validity window of issued URLs.
const DefaultExpiry = 300 * time.Second

// CredentialSource records which link of the credential chain produced a credential.
type CredentialSource string

// Credential source constants (typed).
const (
	CredentialSourceEnv      CredentialSource = "env"
	CredentialSourceMetadata CredentialSource = "metadata"
	CredentialSourceStatic   CredentialSource = "static"
)

// Credential is a storage-provider key pair, optionally with a session token.
//
// A credential carrying a session token is temporary (issued by the cloud
// identity service and auto-expiring). One without is a long-lived key pair.
type Credential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Source          CredentialSource
}

// IsTemporary reports whether the credential is a short-lived session credential.
func (c *Credential) IsTemporary() bool {
	return c != nil && c.SessionToken != ""
}

// PresignRequest is the caller's request for an upload URL.
type PresignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
}

// PresignResponse carries the signed URLs for one freshly generated object key.
type PresignResponse struct {
	UploadURL   string `json:"uploadUrl"`
	Key         string `json:"key"`
	GetURL      string `json:"getUrl,omitempty"`
	ContentType string `json:"contentType"`
	ViaSTS      bool   `json:"viaSTS"`
	ExpiresIn   int    `json:"expiresIn"`
}

// SignRequest describes a single URL to sign.
type SignRequest struct {
	Method  string
	Key     string
	Expires time.Duration
	// Headers the client must send verbatim; they are bound into the signature.
	Headers http.Header
}

// IssueEvent is passed to an EventSink after a successful issuance.
type IssueEvent struct {
	Backend          string
	Key              string
	ContentType      string
	CredentialSource CredentialSource
	Temporary        bool
	WithDownloadURL  bool
}
