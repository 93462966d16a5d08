package memory

import (
	"context"
	"fmt"
	"sync"

	ports "cardledger/internal/sheets"
)

// Log is an in-memory ActivityWriter used when no spreadsheet is configured.
type Log struct {
	mu   sync.Mutex
	rows []ports.ActivityRow
}

var _ ports.ActivityWriter = (*Log)(nil)

func New() *Log {
	return &Log{}
}

func (l *Log) Append(_ context.Context, rows ...ports.ActivityRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	first := len(l.rows) + 1
	l.rows = append(l.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(l.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (l *Log) Rows() []ports.ActivityRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.ActivityRow(nil), l.rows...)
}
