package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid snapshot payload")
)

// Snapshot keys. Each holds the full JSON encoding of one collection.
const (
	KeyUsers        = "pos-users"
	KeyProducts     = "pos-products"
	KeyTransactions = "pos-transactions"
)

func Keys() []string {
	return []string{KeyUsers, KeyProducts, KeyTransactions}
}

// SnapshotStore persists whole-collection snapshots by key. Load returns
// ErrNotFound when nothing was saved under key yet.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}
