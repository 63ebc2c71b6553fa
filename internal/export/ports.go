// Package export defines the outbound port for appending expenses to an
// external destination, with Google Sheets and in-memory adapters.
package export

import (
	"context"

	"spendtrack/internal/core"
)

// Appender appends a single expense row to the export destination.
type Appender interface {
	Append(ctx context.Context, e core.Expense) error
}
