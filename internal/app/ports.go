package app

import (
	"context"
	"encoding/json"

	"github.com/hylla/animebridge/internal/domain"
)

// Bag is a flat key-value state bag. Values are JSON documents; a nil value
// passed to Repository.Save removes the key.
type Bag map[string]json.RawMessage

// ListQuery selects one page of a user's catalog list.
type ListQuery struct {
	User   string
	Status domain.Status
	Sort   string
	Limit  int
	Fields []string
}

// Catalog fetches raw list records from the remote catalog service.
type Catalog interface {
	FetchList(context.Context, ListQuery, string) ([]domain.RawItem, error)
}

// Repository persists the state bag and the consumed-report log.
type Repository interface {
	Load(context.Context, []string) (Bag, error)
	Save(context.Context, Bag) error
	Delete(context.Context, []string) error
	// CommitReport applies the bag and appends the log entry atomically.
	CommitReport(context.Context, Bag, domain.ConsumedReport) error
	ListConsumedReports(context.Context, int) ([]domain.ConsumedReport, error)
}

// Logger is the structured logger the service writes to.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// nopLogger discards all records.
type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
