// Package fake provides an in-process Backend that records calls. It signs
// nothing; URLs it returns only encode the request they were built from.
package fake

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// BackendName identifies this provider in logs and responses
const BackendName = "fake"

// Backend is a scripted simplepresign.Backend
type Backend struct {
	// Credential returned by ResolveCredential. Nil means unavailable.
	Credential *simplepresign.Credential
	// SignErr, when set, is returned by SignURL for the matching method
	// (empty key matches every method).
	SignErr map[string]error

	resolveCalls atomic.Int64
	signCalls    atomic.Int64

	mu       sync.Mutex
	requests []simplepresign.SignRequest
}

// New returns a backend that resolves to cred.
func New(cred *simplepresign.Credential) *Backend {
	return &Backend{Credential: cred}
}

func (b *Backend) Name() string { return BackendName }

func (b *Backend) ResolveCredential(ctx context.Context) (*simplepresign.Credential, error) {
	b.resolveCalls.Add(1)
	if b.Credential == nil {
		return nil, simplepresign.ErrCredentialUnavailable
	}
	c := *b.Credential
	return &c, nil
}

func (b *Backend) SignURL(ctx context.Context, cred *simplepresign.Credential, req simplepresign.SignRequest) (string, error) {
	b.signCalls.Add(1)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if err, ok := b.SignErr[req.Method]; ok {
		return "", &simplepresign.SigningError{Backend: BackendName, Method: req.Method, Key: req.Key, Err: err}
	}
	if err, ok := b.SignErr[""]; ok {
		return "", &simplepresign.SigningError{Backend: BackendName, Method: req.Method, Key: req.Key, Err: err}
	}

	q := url.Values{}
	q.Set("method", req.Method)
	q.Set("expires", fmt.Sprintf("%d", int(req.Expires.Seconds())))
	q.Set("access-key", cred.AccessKeyID)
	if ct := req.Headers.Get("Content-Type"); ct != "" {
		q.Set("content-type", ct)
	}
	return "https://fake.invalid/" + req.Key + "?" + q.Encode(), nil
}

// ResolveCalls reports how many times ResolveCredential ran
func (b *Backend) ResolveCalls() int { return int(b.resolveCalls.Load()) }

// SignCalls reports how many times SignURL ran
func (b *Backend) SignCalls() int { return int(b.signCalls.Load()) }

// Requests returns a copy of every SignRequest seen so far
func (b *Backend) Requests() []simplepresign.SignRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]simplepresign.SignRequest(nil), b.requests...)
}
