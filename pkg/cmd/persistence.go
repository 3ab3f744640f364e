package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/persistence/file"
	"github.com/dukex/supplyflow/pkg/persistence/postgresql"
)

// NewPersistence picks the backend from the URL scheme: postgres:// and
// postgresql:// use PostgreSQL, anything else is a file:// directory.
//
//nolint:ireturn
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
