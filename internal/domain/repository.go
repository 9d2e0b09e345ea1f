package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are stored JSON-encoded; Get returns ErrCacheMiss for absent or expired keys.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductClient defines the interface for the public food database
type ProductClient interface {
	GetProduct(ctx context.Context, barcode string) (*OFFProduct, error)
}

// ProfileBackend persists the user's allergen profile as a single keyed record.
// Load returns (nil, nil) when nothing has been stored yet.
type ProfileBackend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Reasoner is the language-model backend used by the analysis engine
type Reasoner interface {
	Complete(ctx context.Context, req *ReasoningRequest) (*ReasoningReply, error)
}
