// Package oss signs upload and download URLs for S3-compatible object stores
// other than AWS: Alibaba Cloud OSS, Tencent COS, MinIO and the like. It
// speaks SigV4 through minio-go and never contacts the store itself.
package oss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
)

// BackendName identifies this provider in logs and responses
const BackendName = "oss"

// MaxExpiry is the longest validity SigV4 query signing allows
const MaxExpiry = 7 * 24 * time.Hour

// Config options for the OSS backend
type Config struct {
	// Endpoint is the service URL, e.g. https://oss-cn-hangzhou.aliyuncs.com.
	// A bare host is treated as https.
	Endpoint string
	Bucket   string
	// Region used in the signing scope. Defaults to the first label of the
	// endpoint host (oss-cn-hangzhou for the example above).
	Region       string
	UsePathStyle bool

	Credentials *credentials.Chain
}

// Backend is an S3-compatible implementation of simplepresign.Backend
type Backend struct {
	host        string
	secure      bool
	region      string
	bucket      string
	lookup      minio.BucketLookupType
	transport   http.RoundTripper
	credentials *credentials.Chain
}

// New creates an OSS signing backend. It performs no network I/O.
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Credentials == nil {
		return nil, errors.New("credential chain is required")
	}

	host, secure, err := parseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	region := config.Region
	if region == "" {
		region = strings.SplitN(host, ".", 2)[0]
	}

	transport, err := minio.DefaultTransport(secure)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	lookup := minio.BucketLookupAuto
	if config.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	return &Backend{
		host:        host,
		secure:      secure,
		region:      region,
		bucket:      config.Bucket,
		lookup:      lookup,
		transport:   transport,
		credentials: config.Credentials,
	}, nil
}

func parseEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}
}

func (b *Backend) Name() string { return BackendName }

// Region returns the signing region in use
func (b *Backend) Region() string { return b.region }

// ResolveCredential walks the configured credential chain
func (b *Backend) ResolveCredential(ctx context.Context) (*simplepresign.Credential, error) {
	return b.credentials.Resolve(ctx)
}

// SignURL returns a SigV4 presigned URL for req. Every header in req.Headers,
// Content-Type included, is bound into the signature.
func (b *Backend) SignURL(ctx context.Context, cred *simplepresign.Credential, req simplepresign.SignRequest) (string, error) {
	if cred == nil {
		return "", b.signingError(req, simplepresign.ErrCredentialUnavailable)
	}
	if req.Expires < time.Second || req.Expires > MaxExpiry {
		return "", b.signingError(req, fmt.Errorf("expiry %s outside [1s, %s]", req.Expires, MaxExpiry))
	}
	if req.Method != http.MethodPut && req.Method != http.MethodGet {
		return "", b.signingError(req, fmt.Errorf("unsupported method %q", req.Method))
	}

	client, err := b.client(cred)
	if err != nil {
		return "", b.signingError(req, err)
	}

	headers := http.Header{}
	if req.Method == http.MethodPut {
		for k, vs := range req.Headers {
			headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}

	u, err := client.PresignHeader(ctx, req.Method, b.bucket, req.Key, req.Expires, url.Values{}, headers)
	if err != nil {
		return "", b.signingError(req, err)
	}
	return u.String(), nil
}

// client builds a request-scoped minio client bound to cred. Region is always
// set so presigning never triggers a bucket-location lookup.
func (b *Backend) client(cred *simplepresign.Credential) (*minio.Client, error) {
	return minio.New(b.host, &minio.Options{
		Creds:        miniocreds.NewStaticV4(cred.AccessKeyID, cred.SecretAccessKey, cred.SessionToken),
		Secure:       b.secure,
		Region:       b.region,
		BucketLookup: b.lookup,
		Transport:    b.transport,
	})
}

func (b *Backend) signingError(req simplepresign.SignRequest, err error) error {
	slog.Error("Failed to presign URL", "backend", BackendName, "method", req.Method, "key", req.Key, "err", err)
	return &simplepresign.SigningError{
		Backend: BackendName,
		Method:  req.Method,
		Key:     req.Key,
		Err:     err,
	}
}
