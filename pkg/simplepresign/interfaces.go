package simplepresign

import "context"

// Backend is a storage provider able to resolve credentials and sign URLs.
type Backend interface {
	// Name identifies the provider in logs, metrics and error messages
	Name() string

	// ResolveCredential walks the provider's credential chain. It returns an
	// error wrapping ErrCredentialUnavailable when every source declines.
	ResolveCredential(ctx context.Context) (*Credential, error)

	// SignURL produces a time-bounded signed URL. It performs no network I/O.
	SignURL(ctx context.Context, cred *Credential, req SignRequest) (string, error)
}

// KeyGenerator builds object keys from caller-supplied file names
type KeyGenerator interface {
	GenerateKey(fileName string) string
}

// EventSink receives issuance outcomes
type EventSink interface {
	PresignIssued(ctx context.Context, event IssueEvent)
	PresignFailed(ctx context.Context, backend string, err error)
}
