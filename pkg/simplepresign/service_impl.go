package simplepresign

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-presign/pkg/simplepresign/objectkey"
)

// service implements the Service interface
type service struct {
	backend         Backend
	keyGenerator    KeyGenerator
	eventSink       EventSink
	expiry          time.Duration
	withDownloadURL bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBackend sets the storage provider used for credential resolution and signing
func WithBackend(backend Backend) Option {
	return func(s *service) {
		s.backend = backend
	}
}

// WithKeyGenerator overrides the default uploads/<uuid>_<fileName> key scheme
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(s *service) {
		s.keyGenerator = gen
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithExpiry sets the validity window of issued URLs
func WithExpiry(d time.Duration) Option {
	return func(s *service) {
		s.expiry = d
	}
}

// WithDownloadURL controls whether a GET URL is signed alongside the PUT URL
func WithDownloadURL(enabled bool) Option {
	return func(s *service) {
		s.withDownloadURL = enabled
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keyGenerator:    objectkey.NewUploadsGenerator(),
		eventSink:       NewNoopEventSink(),
		expiry:          DefaultExpiry,
		withDownloadURL: true,
	}

	for _, option := range options {
		option(s)
	}

	if s.backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if s.expiry <= 0 {
		return nil, fmt.Errorf("expiry must be positive, got %s", s.expiry)
	}

	return s, nil
}

func (s *service) Backend() Backend {
	return s.backend
}

func (s *service) Presign(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	if req.FileName == "" {
		return nil, &InputError{Field: "fileName", Message: "fileName required"}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	cred, err := s.backend.ResolveCredential(ctx)
	if err != nil {
		s.eventSink.PresignFailed(ctx, s.backend.Name(), err)
		return nil, fmt.Errorf("resolve credential: %w", err)
	}

	key := s.keyGenerator.GenerateKey(req.FileName)

	// The uploader must send this exact Content-Type or the store rejects the PUT.
	uploadURL, err := s.backend.SignURL(ctx, cred, SignRequest{
		Method:  http.MethodPut,
		Key:     key,
		Expires: s.expiry,
		Headers: http.Header{"Content-Type": []string{contentType}},
	})
	if err != nil {
		s.eventSink.PresignFailed(ctx, s.backend.Name(), err)
		return nil, err
	}

	resp := &PresignResponse{
		UploadURL:   uploadURL,
		Key:         key,
		ContentType: contentType,
		ViaSTS:      cred.IsTemporary(),
		ExpiresIn:   int(s.expiry.Seconds()),
	}

	if s.withDownloadURL {
		getURL, err := s.backend.SignURL(ctx, cred, SignRequest{
			Method:  http.MethodGet,
			Key:     key,
			Expires: s.expiry,
		})
		if err != nil {
			s.eventSink.PresignFailed(ctx, s.backend.Name(), err)
			return nil, err
		}
		resp.GetURL = getURL
	}

	slog.Info("Issued presigned URL", "backend", s.backend.Name(), "key", key,
		"credential_source", cred.Source, "temporary", cred.IsTemporary())

	s.eventSink.PresignIssued(ctx, IssueEvent{
		Backend:          s.backend.Name(),
		Key:              key,
		ContentType:      contentType,
		CredentialSource: cred.Source,
		Temporary:        cred.IsTemporary(),
		WithDownloadURL:  s.withDownloadURL,
	})

	return resp, nil
}
