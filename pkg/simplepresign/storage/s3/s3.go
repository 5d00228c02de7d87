package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
)

// BackendName identifies this provider in logs and responses
const BackendName = "s3"

// MaxExpiry is the longest validity SigV4 query signing allows
const MaxExpiry = 7 * 24 * time.Hour

// Config options for the S3 backend
type Config struct {
	Region       string // AWS region
	Bucket       string // S3 bucket name
	Endpoint     string // Optional custom endpoint for S3-compatible services
	UsePathStyle bool   // Use path-style addressing (default: false)

	// Credential chain; required
	Credentials *credentials.Chain
}

// Backend is an S3 implementation of the simplepresign.Backend interface
type Backend struct {
	bucket      string
	base        aws.Config
	credentials *credentials.Chain
	config      Config
}

// New creates a new S3 signing backend. It performs no network I/O.
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Credentials == nil {
		return nil, errors.New("credential chain is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	// Credentials are injected per request; the base config only carries
	// region and logging.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithLogger(sdkLogger()),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Backend{
		bucket:      config.Bucket,
		base:        awsCfg,
		credentials: config.Credentials,
		config:      config,
	}, nil
}

func (b *Backend) Name() string { return BackendName }

// ResolveCredential walks the configured credential chain
func (b *Backend) ResolveCredential(ctx context.Context) (*simplepresign.Credential, error) {
	return b.credentials.Resolve(ctx)
}

// SignURL returns a SigV4 presigned URL for req. Content-Type in req.Headers
// is bound into the signature for PUT requests.
func (b *Backend) SignURL(ctx context.Context, cred *simplepresign.Credential, req simplepresign.SignRequest) (string, error) {
	if cred == nil {
		return "", b.signingError(req, simplepresign.ErrCredentialUnavailable)
	}
	if req.Expires <= 0 || req.Expires > MaxExpiry {
		return "", b.signingError(req, fmt.Errorf("expiry %s outside (0, %s]", req.Expires, MaxExpiry))
	}

	presignClient := s3.NewPresignClient(b.client(cred))
	expires := func(opts *s3.PresignOptions) {
		opts.Expires = req.Expires
	}

	var (
		result *v4.PresignedHTTPRequest
		err    error
	)
	switch req.Method {
	case http.MethodPut:
		input := &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(req.Key),
		}
		opts := []func(*s3.PresignOptions){expires}
		if ct := req.Headers.Get("Content-Type"); ct != "" {
			input.ContentType = aws.String(ct)
			opts = append(opts, func(o *s3.PresignOptions) {
				o.Presigner = headerPresigner{headers: http.Header{"Content-Type": []string{ct}}, signer: newSigner()}
			})
		}
		result, err = presignClient.PresignPutObject(ctx, input, opts...)
	case http.MethodGet:
		result, err = presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(req.Key),
		}, expires)
	default:
		err = fmt.Errorf("unsupported method %q", req.Method)
	}

	if err != nil {
		return "", b.signingError(req, err)
	}
	return result.URL, nil
}

// client builds a request-scoped S3 client bound to cred
func (b *Backend) client(cred *simplepresign.Credential) *s3.Client {
	return s3.NewFromConfig(b.base, func(o *s3.Options) {
		o.Credentials = awscredentials.NewStaticCredentialsProvider(
			cred.AccessKeyID,
			cred.SecretAccessKey,
			cred.SessionToken,
		)
		// Custom endpoint for S3-compatible services (MinIO, etc.)
		if b.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.config.Endpoint)
		}
		o.UsePathStyle = b.config.UsePathStyle
	})
}

// headerPresigner pins headers onto the request right before SigV4 signing.
// The presign stack drops Content-Type from PutObject, which would leave the
// URL valid for any upload type.
type headerPresigner struct {
	headers http.Header
	signer  *v4.Signer
}

func (p headerPresigner) PresignHTTP(
	ctx context.Context, creds aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	for name, values := range p.headers {
		r.Header[http.CanonicalHeaderKey(name)] = values
	}
	return p.signer.PresignHTTP(ctx, creds, r, payloadHash, service, region, signingTime, optFns...)
}

// newSigner matches the SDK's S3 signer: object keys are escaped once.
func newSigner() *v4.Signer {
	return v4.NewSigner(func(o *v4.SignerOptions) {
		o.DisableURIPathEscaping = true
		o.Logger = sdkLogger()
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

// sdkLogger forwards SDK log output to slog
func sdkLogger() logging.Logger {
	return logging.LoggerFunc(func(classification logging.Classification, format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		if classification == logging.Warn {
			slog.Warn(msg, "component", "aws-sdk")
			return
		}
		slog.Debug(msg, "component", "aws-sdk")
	})
}
