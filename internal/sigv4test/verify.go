// Package sigv4test verifies SigV4 query-presigned URLs the way an object
// store does, so tests can check that an uploader's request would be accepted.
package sigv4test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	algorithm       = "AWS4-HMAC-SHA256"
	unsignedPayload = "UNSIGNED-PAYLOAD"
	amzDateFormat   = "20060102T150405Z"
)

var (
	ErrMalformed         = errors.New("sigv4test: malformed presigned URL")
	ErrExpired           = errors.New("sigv4test: presigned URL expired")
	ErrSignatureMismatch = errors.New("sigv4test: signature does not match")
)

// Params are the X-Amz-* query values of a presigned URL.
type Params struct {
	AccessKeyID   string
	Date          string
	Region        string
	Service       string
	AmzDate       time.Time
	Expires       time.Duration
	SignedHeaders []string
	SecurityToken string
	Signature     string
}

// Parse extracts the SigV4 query parameters from rawURL.
func Parse(rawURL string) (*url.URL, *Params, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	q := u.Query()

	if q.Get("X-Amz-Algorithm") != algorithm {
		return nil, nil, fmt.Errorf("%w: algorithm %q", ErrMalformed, q.Get("X-Amz-Algorithm"))
	}

	credParts := strings.Split(q.Get("X-Amz-Credential"), "/")
	if len(credParts) != 5 || credParts[4] != "aws4_request" {
		return nil, nil, fmt.Errorf("%w: credential %q", ErrMalformed, q.Get("X-Amz-Credential"))
	}

	amzDate, err := time.Parse(amzDateFormat, q.Get("X-Amz-Date"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: date: %v", ErrMalformed, err)
	}

	expires, err := strconv.Atoi(q.Get("X-Amz-Expires"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: expires: %v", ErrMalformed, err)
	}

	signature := q.Get("X-Amz-Signature")
	if signature == "" {
		return nil, nil, fmt.Errorf("%w: missing signature", ErrMalformed)
	}

	return u, &Params{
		AccessKeyID:   credParts[0],
		Date:          credParts[1],
		Region:        credParts[2],
		Service:       credParts[3],
		AmzDate:       amzDate,
		Expires:       time.Duration(expires) * time.Second,
		SignedHeaders: strings.Split(q.Get("X-Amz-SignedHeaders"), ";"),
		SecurityToken: q.Get("X-Amz-Security-Token"),
		Signature:     signature,
	}, nil
}

// Verify checks that a request with the given method and headers against
// rawURL carries a valid signature for secretAccessKey at time now.
func Verify(rawURL, method string, header http.Header, secretAccessKey string, now time.Time) error {
	u, p, err := Parse(rawURL)
	if err != nil {
		return err
	}

	if now.After(p.AmzDate.Add(p.Expires)) {
		return ErrExpired
	}

	canonicalReq := canonicalRequest(method, u, header, p.SignedHeaders)
	crHash := sha256.Sum256([]byte(canonicalReq))

	scope := strings.Join([]string{p.Date, p.Region, p.Service, "aws4_request"}, "/")
	var sts strings.Builder
	sts.WriteString(algorithm)
	sts.WriteString("\n")
	sts.WriteString(p.AmzDate.Format(amzDateFormat))
	sts.WriteString("\n")
	sts.WriteString(scope)
	sts.WriteString("\n")
	sts.WriteString(hex.EncodeToString(crHash[:]))

	kDate := hmacSHA256([]byte("AWS4"+secretAccessKey), p.Date)
	kRegion := hmacSHA256(kDate, p.Region)
	kService := hmacSHA256(kRegion, p.Service)
	kSigning := hmacSHA256(kService, "aws4_request")
	computed := hmacSHA256(kSigning, sts.String())

	given, err := hex.DecodeString(p.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature encoding: %v", ErrMalformed, err)
	}
	if !hmac.Equal(computed, given) {
		return ErrSignatureMismatch
	}
	return nil
}

func canonicalRequest(method string, u *url.URL, header http.Header, signedHeaders []string) string {
	var hdr strings.Builder
	for _, name := range signedHeaders {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		var value string
		if name == "host" {
			value = stripDefaultPort(u)
		} else {
			value = header.Get(name)
		}
		hdr.WriteString(name)
		hdr.WriteString(":")
		hdr.WriteString(strings.Join(strings.Fields(value), " "))
		hdr.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteString("\n")
	b.WriteString(uriEncode(u.Path, false))
	b.WriteString("\n")
	b.WriteString(canonicalQuery(u))
	b.WriteString("\n")
	b.WriteString(hdr.String())
	b.WriteString("\n")
	b.WriteString(strings.Join(signedHeaders, ";"))
	b.WriteString("\n")
	b.WriteString(unsignedPayload)
	return b.String()
}

func canonicalQuery(u *url.URL) string {
	values := u.Query()
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "X-Amz-Signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, uriEncode(k, true)+"="+uriEncode(v, true))
		}
	}
	return strings.Join(parts, "&")
}

func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		if c == '/' && !encodeSlash {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func stripDefaultPort(u *url.URL) string {
	host := u.Host
	switch {
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	}
	return host
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
