package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// LoadCSV reads the order table from a CSV file with a header row.
func LoadCSV(path string) (*OrderStore, error) {
	slog.Debug("store.LoadCSV: opening order source", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
			return nil, le
		}
		return nil, &LoadError{Source: path, Err: err}
	}
	slog.Info("store.LoadCSV: orders loaded", "path", path, "count", len(records))
	return NewOrderStore(path, records), nil
}

// ReadCSV parses CSV order rows. Header names are matched case-insensitively and
// may appear in any order; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]models.OrderRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{Source: "csv", Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, &LoadError{Source: "csv", Err: err}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range OrderColumns {
		if col == ColTrackingNumber {
			continue
		}
		if _, ok := index[col]; !ok {
			return nil, &LoadError{Source: "csv", Err: fmt.Errorf("missing column %q", col)}
		}
	}

	var records []models.OrderRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: "csv", Row: row, Err: err}
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}
		rec, err := parseOrder(get)
		if err != nil {
			return nil, &LoadError{Source: "csv", Row: row, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}
