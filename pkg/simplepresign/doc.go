// Package simplepresign issues time-limited presigned object-storage URLs so
// that browser clients upload and download directly against the object store.
//
// A Service validates the caller's request, resolves a storage credential
// through the configured Backend, builds a unique object key and signs a PUT
// URL (and optionally a GET URL) for it. Backends for AWS S3 and for
// S3-compatible stores (Alibaba OSS, Tencent COS) live under storage/.
// Transport adapters for a standalone HTTP service and an API gateway function
// live under api/ and gateway/; both wrap the same Service.
//
// Credentials are resolved fresh on every request and never cached. See the
// credentials subpackage for the fallback chain.
package simplepresign
