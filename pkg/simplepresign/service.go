package simplepresign

import "context"

// Service defines the main interface for the simple-presign library
type Service interface {
	// Presign validates req, resolves a credential, generates a fresh object
	// key and returns the signed URLs for it.
	Presign(ctx context.Context, req PresignRequest) (*PresignResponse, error)

	// Backend returns the storage provider the service signs against
	Backend() Backend
}
