package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-presign/internal/sigv4test"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
	"github.com/tendant/simple-presign/pkg/simplepresign/metrics"
	"github.com/tendant/simple-presign/pkg/simplepresign/storage/fake"
	s3storage "github.com/tendant/simple-presign/pkg/simplepresign/storage/s3"
)

var birdKey = regexp.MustCompile(`^uploads/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_bird\.jpg$`)

func newS3Service(t *testing.T, chain *credentials.Chain) simplepresign.Service {
	t.Helper()
	backend, err := s3storage.New(context.Background(), s3storage.Config{
		Bucket:      "birdtag-uploads",
		Region:      "us-east-1",
		Credentials: chain,
	})
	require.NoError(t, err)

	svc, err := simplepresign.New(simplepresign.WithBackend(backend))
	require.NoError(t, err)
	return svc
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body simplepresign.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestPresign_EndToEndLongLivedKeys(t *testing.T) {
	chain := credentials.NewChain(
		credentials.NewEnvProvider(credentials.Keys{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "long-lived-secret"}),
		credentials.NewStaticKeyProvider(credentials.Keys{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "long-lived-secret"}),
	)
	router := NewRouter(RouterConfig{Service: newS3Service(t, chain)})

	rec := doRequest(t, router, http.MethodPost, "/presign", `{"fileName":"bird.jpg","contentType":"image/jpeg"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp simplepresign.PresignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.UploadURL)
	assert.NotEmpty(t, resp.GetURL)
	assert.Regexp(t, birdKey, resp.Key)
	assert.Equal(t, "image/jpeg", resp.ContentType)
	assert.False(t, resp.ViaSTS)
	assert.Equal(t, 300, resp.ExpiresIn)

	// The store accepts the upload only with the exact Content-Type.
	jpeg := http.Header{}
	jpeg.Set("Content-Type", "image/jpeg")
	assert.NoError(t, sigv4test.Verify(resp.UploadURL, http.MethodPut, jpeg, "long-lived-secret", time.Now()))

	png := http.Header{}
	png.Set("Content-Type", "image/png")
	assert.ErrorIs(t, sigv4test.Verify(resp.UploadURL, http.MethodPut, png, "long-lived-secret", time.Now()), sigv4test.ErrSignatureMismatch)

	assert.NoError(t, sigv4test.Verify(resp.GetURL, http.MethodGet, http.Header{}, "long-lived-secret", time.Now()))

	// The raw body carries the documented field names.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, k := range []string{"uploadUrl", "key", "getUrl", "contentType", "viaSTS"} {
		assert.Contains(t, raw, k)
	}
}

func TestPresign_CredentialsUnavailable(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	endpoint := down.URL
	down.Close()

	chain := credentials.NewDefaultChain(credentials.Keys{}, credentials.NewIMDSFetcher(endpoint), 200*time.Millisecond)
	router := NewRouter(RouterConfig{Service: newS3Service(t, chain)})

	rec := doRequest(t, router, http.MethodPost, "/presign", `{"fileName":"bird.jpg"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage credentials not available", decodeError(t, rec))
}

func TestPresign_ClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed json", `{"fileName":`, simplepresign.MsgInvalidJSON},
		{"wrong type", `{"fileName": 12}`, simplepresign.MsgInvalidJSON},
		{"missing fileName", `{"contentType":"image/jpeg"}`, simplepresign.MsgFileNameRequired},
		{"empty fileName", `{"fileName":""}`, simplepresign.MsgFileNameRequired},
		{"trailing data", `{"fileName":"bird.jpg"} {"fileName":"cat.jpg"}`, simplepresign.MsgInvalidJSON},
		{"trailing garbage", `{"fileName":"bird.jpg"}x`, simplepresign.MsgInvalidJSON},
		{"empty body", ``, simplepresign.MsgFileNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := fake.New(&simplepresign.Credential{AccessKeyID: "a", SecretAccessKey: "s"})
			svc, err := simplepresign.New(simplepresign.WithBackend(backend))
			require.NoError(t, err)

			rec := doRequest(t, NewRouter(RouterConfig{Service: svc}), http.MethodPost, "/presign", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec))
			assert.Equal(t, 0, backend.ResolveCalls())
		})
	}
}

func TestPresign_BodyTooLarge(t *testing.T) {
	backend := fake.New(&simplepresign.Credential{AccessKeyID: "a", SecretAccessKey: "s"})
	svc, err := simplepresign.New(simplepresign.WithBackend(backend))
	require.NoError(t, err)

	body := `{"fileName":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`
	rec := doRequest(t, NewRouter(RouterConfig{Service: svc}), http.MethodPost, "/presign", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, simplepresign.MsgBodyTooLarge, decodeError(t, rec))
	assert.Equal(t, 0, backend.ResolveCalls())
}

func TestPresign_SigningFailure(t *testing.T) {
	backend := fake.New(&simplepresign.Credential{AccessKeyID: "a", SecretAccessKey: "s"})
	backend.SignErr = map[string]error{"": errors.New("sdk exploded: secret details")}
	svc, err := simplepresign.New(simplepresign.WithBackend(backend))
	require.NoError(t, err)

	rec := doRequest(t, NewRouter(RouterConfig{Service: svc}), http.MethodPost, "/presign", `{"fileName":"bird.jpg"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "fake signing failed", decodeError(t, rec))
	assert.NotContains(t, rec.Body.String(), "secret details")
}

func TestPresign_MethodNotAllowed(t *testing.T) {
	backend := fake.New(nil)
	svc, err := simplepresign.New(simplepresign.WithBackend(backend))
	require.NoError(t, err)
	router := NewRouter(RouterConfig{Service: svc})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := doRequest(t, router, method, "/presign", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, simplepresign.MsgMethodNotAllowed, decodeError(t, rec))
	}
	assert.Equal(t, 0, backend.ResolveCalls())
}

func TestPresign_CORSPreflight(t *testing.T) {
	backend := fake.New(nil)
	svc, err := simplepresign.New(simplepresign.WithBackend(backend))
	require.NoError(t, err)
	router := NewRouter(RouterConfig{Service: svc, AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/presign", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 0, backend.ResolveCalls())

	req = httptest.NewRequest(http.MethodPost, "/presign", bytes.NewBufferString(`{"fileName":"x"}`))
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	sink, err := metrics.NewSink("")
	require.NoError(t, err)
	backend := fake.New(&simplepresign.Credential{AccessKeyID: "a", SecretAccessKey: "s", Source: simplepresign.CredentialSourceStatic})
	svc, err := simplepresign.New(simplepresign.WithBackend(backend), simplepresign.WithEventSink(sink))
	require.NoError(t, err)
	router := NewRouter(RouterConfig{Service: svc, Metrics: sink.Handler()})

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/healthz/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"fake"`)

	rec = doRequest(t, router, http.MethodPost, "/presign", `{"fileName":"bird.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `presign_urls_issued_total{backend="fake",credential_source="static",temporary="false"} 1`)

	rec = doRequest(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	status, msg := StatusFor(&simplepresign.InputError{Field: "fileName", Message: "fileName required"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, simplepresign.MsgFileNameRequired, msg)

	status, msg = StatusFor(errors.New("anything"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, simplepresign.MsgInternal, msg)

	status, _ = StatusFor(simplepresign.ErrUnsupportedMethod)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}
