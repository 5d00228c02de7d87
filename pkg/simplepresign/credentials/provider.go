// Package credentials resolves storage-provider credentials through an ordered
// fallback chain: explicit configuration, then the instance metadata service,
// then a long-lived key pair. Each link either yields a credential or declines;
// only exhaustion of the whole chain is an error.
package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// Provider is a single credential source.
type Provider interface {
	// Name identifies the source in logs
	Name() string

	// Retrieve yields a credential, or false when the source has none.
	// Sources never fail the request on their own.
	Retrieve(ctx context.Context) (*simplepresign.Credential, bool)
}

// Chain tries providers in order; the first one that yields wins.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain from providers in priority order. Nil entries are skipped.
func NewChain(providers ...Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Providers returns the chain's sources in priority order
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Resolve walks the chain once. Each source is tried at most once per call.
func (c *Chain) Resolve(ctx context.Context) (*simplepresign.Credential, error) {
	for _, p := range c.providers {
		cred, ok := p.Retrieve(ctx)
		if !ok {
			slog.Debug("Credential source declined", "source", p.Name())
			continue
		}
		slog.Debug("Credential resolved", "source", p.Name(), "temporary", cred.IsTemporary())
		return cred, nil
	}
	slog.Error("No storage credential source produced a credential", "sources", len(c.providers))
	return nil, simplepresign.ErrCredentialUnavailable
}

// Keys is the explicitly configured key material for one backend.
type Keys struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewDefaultChain builds the standard resolution order: explicit key, secret
// and token; then fetcher (skipped when nil); then the long-lived key pair.
func NewDefaultChain(keys Keys, fetcher Fetcher, metadataTimeout time.Duration) *Chain {
	var metadata Provider
	if fetcher != nil {
		metadata = NewMetadataProvider(fetcher, metadataTimeout)
	}
	return NewChain(
		NewEnvProvider(keys),
		metadata,
		NewStaticKeyProvider(keys),
	)
}
