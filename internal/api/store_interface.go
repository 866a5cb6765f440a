package api

import "github.com/soaringjerry/VisitPulse/internal/services"

// Store is what the server needs from a backend: the survey row operations
// plus resource cleanup. Implemented by memoryStore and db.SQLiteStore.
type Store interface {
	services.ResponseStore
	Close() error
}

var _ Store = (*memoryStore)(nil)
