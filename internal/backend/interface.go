package backend

import (
	"context"

	"ovenbook/internal/amqp"
	"ovenbook/internal/store"
)

// Backend is the full persistence surface: both ledgers plus the order book.
type Backend interface {
	store.ExpenseStore
	store.IncomeStore
	store.OrderStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// AMQP is non-nil only when the backend publishes mirror events (SQLite with
// a configured broker).
type BackendResult struct {
	Backend Backend
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheets specific
	GoogleSpreadsheetID string
	GoogleExpensesSheet string
	GoogleIncomesSheet  string
	GoogleOrdersSheet   string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
