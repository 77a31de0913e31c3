package testutil

import (
	"garage-go/internal/vault"
)

// NewTestArchive creates a new in-memory export archive for testing.
func NewTestArchive() *vault.MemoryArchive {
	return vault.NewMemoryArchive("test-archive")
}
