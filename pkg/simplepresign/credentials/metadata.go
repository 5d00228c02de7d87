package credentials

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// DefaultMetadataTimeout bounds a whole metadata lookup (role name + credentials).
const DefaultMetadataTimeout = 1 * time.Second

// Fetcher retrieves role-bound temporary credentials from an instance
// metadata service.
type Fetcher interface {
	Fetch(ctx context.Context) (*simplepresign.Credential, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context) (*simplepresign.Credential, error)

func (f FetcherFunc) Fetch(ctx context.Context) (*simplepresign.Credential, error) {
	return f(ctx)
}

// ErrIncompleteCredential is returned by fetchers when the metadata service
// answered without a full key, secret and token triple.
var ErrIncompleteCredential = errors.New("metadata credentials incomplete")

// MetadataProvider asks the instance metadata service for temporary
// credentials. Any failure is logged and turns into a decline.
type MetadataProvider struct {
	Fetcher Fetcher
	Timeout time.Duration
}

func NewMetadataProvider(fetcher Fetcher, timeout time.Duration) *MetadataProvider {
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	return &MetadataProvider{Fetcher: fetcher, Timeout: timeout}
}

func (p *MetadataProvider) Name() string { return string(simplepresign.CredentialSourceMetadata) }

func (p *MetadataProvider) Retrieve(ctx context.Context) (*simplepresign.Credential, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cred, err := p.Fetcher.Fetch(ctx)
	if err != nil {
		slog.Warn("No temporary credentials from instance metadata", "err", err)
		return nil, false
	}
	if cred == nil || cred.AccessKeyID == "" || cred.SecretAccessKey == "" || cred.SessionToken == "" {
		slog.Warn("No temporary credentials from instance metadata", "err", ErrIncompleteCredential)
		return nil, false
	}

	cred.Source = simplepresign.CredentialSourceMetadata
	slog.Info("Temporary credentials fetched from instance metadata")
	return cred, true
}
