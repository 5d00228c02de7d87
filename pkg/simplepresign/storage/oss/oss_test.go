package oss

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-presign/internal/sigv4test"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
)

const testKey = "uploads/3f1c9a52-8a4b-4f7e-9d1e-1b2c3d4e5f60_bird.jpg"

func newTestBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = "my-bucket"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://oss-cn-hangzhou.aliyuncs.com"
	}
	if cfg.Credentials == nil {
		cfg.Credentials = credentials.NewChain()
	}
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

func stsCredential() *simplepresign.Credential {
	return &simplepresign.Credential{
		AccessKeyID:     "STS.NTexample",
		SecretAccessKey: "sts-secret",
		SessionToken:    "sts-token",
		Source:          simplepresign.CredentialSourceMetadata,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		region  string
		secure  bool
		host    string
	}{
		{
			name:   "region from endpoint",
			cfg:    Config{Bucket: "b", Endpoint: "https://oss-cn-hangzhou.aliyuncs.com", Credentials: credentials.NewChain()},
			region: "oss-cn-hangzhou",
			secure: true,
			host:   "oss-cn-hangzhou.aliyuncs.com",
		},
		{
			name:   "explicit region and bare host",
			cfg:    Config{Bucket: "b", Endpoint: "cos.ap-guangzhou.myqcloud.com", Region: "ap-guangzhou", Credentials: credentials.NewChain()},
			region: "ap-guangzhou",
			secure: true,
			host:   "cos.ap-guangzhou.myqcloud.com",
		},
		{
			name:   "plain http",
			cfg:    Config{Bucket: "b", Endpoint: "http://localhost:9000", Region: "us-east-1", Credentials: credentials.NewChain()},
			region: "us-east-1",
			secure: false,
			host:   "localhost:9000",
		},
		{name: "missing bucket", cfg: Config{Endpoint: "https://x", Credentials: credentials.NewChain()}, wantErr: true},
		{name: "missing endpoint", cfg: Config{Bucket: "b", Credentials: credentials.NewChain()}, wantErr: true},
		{name: "missing chain", cfg: Config{Bucket: "b", Endpoint: "https://x"}, wantErr: true},
		{name: "bad scheme", cfg: Config{Bucket: "b", Endpoint: "ftp://x", Credentials: credentials.NewChain()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.region, b.Region())
			assert.Equal(t, tt.secure, b.secure)
			assert.Equal(t, tt.host, b.host)
			assert.Equal(t, BackendName, b.Name())
		})
	}
}

func TestSignURL_PutBindsContentType(t *testing.T) {
	b := newTestBackend(t, Config{})
	cred := stsCredential()

	h := http.Header{}
	h.Set("Content-Type", "image/jpeg")
	signed, err := b.SignURL(context.Background(), cred, simplepresign.SignRequest{
		Method:  http.MethodPut,
		Key:     testKey,
		Expires: simplepresign.DefaultExpiry,
		Headers: h,
	})
	require.NoError(t, err)

	u, params, err := sigv4test.Parse(signed)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "my-bucket")
	assert.True(t, strings.HasSuffix(u.Path, testKey))
	assert.Equal(t, 300*time.Second, params.Expires)
	assert.Equal(t, "oss-cn-hangzhou", params.Region)
	assert.Equal(t, "sts-token", params.SecurityToken)
	assert.Contains(t, params.SignedHeaders, "content-type")

	assert.NoError(t, sigv4test.Verify(signed, http.MethodPut, h, cred.SecretAccessKey, time.Now()))

	other := http.Header{}
	other.Set("Content-Type", "text/html")
	assert.ErrorIs(t, sigv4test.Verify(signed, http.MethodPut, other, cred.SecretAccessKey, time.Now()), sigv4test.ErrSignatureMismatch)
}

func TestSignURL_GetPathStyle(t *testing.T) {
	b := newTestBackend(t, Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		UsePathStyle: true,
	})
	cred := &simplepresign.Credential{AccessKeyID: "minioadmin", SecretAccessKey: "minioadmin"}

	signed, err := b.SignURL(context.Background(), cred, simplepresign.SignRequest{
		Method:  http.MethodGet,
		Key:     testKey,
		Expires: simplepresign.DefaultExpiry,
	})
	require.NoError(t, err)

	u, params, err := sigv4test.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/my-bucket/"+testKey, u.Path)
	assert.Empty(t, params.SecurityToken)
	assert.NoError(t, sigv4test.Verify(signed, http.MethodGet, http.Header{}, cred.SecretAccessKey, time.Now()))
}

func TestSignURL_Errors(t *testing.T) {
	b := newTestBackend(t, Config{})

	_, err := b.SignURL(context.Background(), nil, simplepresign.SignRequest{Method: http.MethodPut, Key: testKey, Expires: time.Minute})
	assert.ErrorIs(t, err, simplepresign.ErrSigning)
	assert.ErrorIs(t, err, simplepresign.ErrCredentialUnavailable)

	_, err = b.SignURL(context.Background(), stsCredential(), simplepresign.SignRequest{Method: http.MethodPut, Key: testKey})
	assert.ErrorIs(t, err, simplepresign.ErrSigning)

	_, err = b.SignURL(context.Background(), stsCredential(), simplepresign.SignRequest{Method: http.MethodPost, Key: testKey, Expires: time.Minute})
	assert.ErrorIs(t, err, simplepresign.ErrSigning)
}
