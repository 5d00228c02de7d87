package credentials

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// EnvProvider yields a temporary credential when key, secret and session
// token are all configured.
type EnvProvider struct {
	Keys Keys
}

func NewEnvProvider(keys Keys) *EnvProvider {
	return &EnvProvider{Keys: keys}
}

func (p *EnvProvider) Name() string { return string(simplepresign.CredentialSourceEnv) }

func (p *EnvProvider) Retrieve(ctx context.Context) (*simplepresign.Credential, bool) {
	k := p.Keys
	if k.AccessKeyID == "" || k.SecretAccessKey == "" || k.SessionToken == "" {
		return nil, false
	}
	return &simplepresign.Credential{
		AccessKeyID:     k.AccessKeyID,
		SecretAccessKey: k.SecretAccessKey,
		SessionToken:    k.SessionToken,
		Source:          simplepresign.CredentialSourceEnv,
	}, true
}

// StaticKeyProvider yields a long-lived credential from a configured key pair.
// It is the last resort of the chain and warns on every use.
type StaticKeyProvider struct {
	Keys Keys
}

func NewStaticKeyProvider(keys Keys) *StaticKeyProvider {
	return &StaticKeyProvider{Keys: keys}
}

func (p *StaticKeyProvider) Name() string { return string(simplepresign.CredentialSourceStatic) }

func (p *StaticKeyProvider) Retrieve(ctx context.Context) (*simplepresign.Credential, bool) {
	k := p.Keys
	if k.AccessKeyID == "" || k.SecretAccessKey == "" {
		return nil, false
	}
	slog.Warn("Using long-lived access key without session token; keys do not rotate, use temporary credentials in production",
		"access_key_id", MaskKey(k.AccessKeyID))
	return &simplepresign.Credential{
		AccessKeyID:     k.AccessKeyID,
		SecretAccessKey: k.SecretAccessKey,
		Source:          simplepresign.CredentialSourceStatic,
	}, true
}

// MaskKey keeps the last four characters of an access key id for log correlation.
func MaskKey(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}
