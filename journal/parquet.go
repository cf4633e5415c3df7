package journal

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet exports entries for offline analytics.
func WriteParquet(path string, entries iter.Seq[HistoryEntry]) error {
	var rows []HistoryRow
	for e := range entries {
		rows = append(rows, ToRow(e))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

func ReadParquet(path string) ([]HistoryEntry, error) {
	rows, err := parquet.ReadFile[HistoryRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.Entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
