// Package kv defines the blob store port the ledger persists into.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Ports for outbound adapters.
type (
	// Store reads and writes opaque values by key.
	Store interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Put(ctx context.Context, key string, value []byte) error
	}

	// Pinger is implemented by stores that can report reachability.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
