package postgresql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// jsonb encodes v for a JSONB column. Nil maps and slices are stored as NULL.
func jsonb(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}

	if string(data) == "null" {
		return nil, nil
	}

	return data, nil
}

func fromJSONB(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}

	err := json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal jsonb value: %w", err)
	}

	return nil
}

func closeRows(rows *sql.Rows, logger *slog.Logger) {
	err := rows.Close()
	if err != nil {
		logger.Error("failed to close rows", "error", err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}
