package storage

import (
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

var (
	// ErrNoDatabaseConnection is returned when a store is created without a connection.
	ErrNoDatabaseConnection = errors.New("database connection is required")

	// Compile-time interface assertions: PlatformStore is the single
	// PostgreSQL implementation behind every domain store interface.
	_ catalog.Store              = (*PlatformStore)(nil)
	_ ingestion.ObservationStore = (*PlatformStore)(nil)
	_ ingestion.RunStore         = (*PlatformStore)(nil)
	_ inequality.Store           = (*PlatformStore)(nil)
	_ forecast.Store             = (*PlatformStore)(nil)
)

// PlatformStore implements the platform's domain store interfaces on a shared
// PostgreSQL connection. Method groups live in the per-concern files next to
// this one.
type PlatformStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPlatformStore creates the store. Returns ErrNoDatabaseConnection when
// conn is nil.
func NewPlatformStore(conn *Connection, logger *slog.Logger) (*PlatformStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &PlatformStore{conn: conn, logger: logger}, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return false
	}

	return constraint == "" || pqErr.Constraint == constraint
}
