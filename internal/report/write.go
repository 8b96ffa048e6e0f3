package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Metadata heads a JSON results file.
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	TotalResults int       `json:"total_results"`
	RunID        string    `json:"run_id,omitempty"`
}

// Document is the JSON results file.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Results  []Record `json:"benchmark_results"`
}

// WriteCSV writes records to w, with the header when header is true.
func WriteCSV(w io.Writer, records []Record, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(CSVHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	for _, r := range records {
		row := []string{
			r.Operation,
			r.Type,
			r.Compiler,
			r.Optimization,
			strconv.FormatInt(r.TimeNs, 10),
			strconv.FormatInt(r.Iterations, 10),
			strconv.FormatFloat(r.OpsPerSec, 'f', 2, 64),
			r.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as a Document.
func WriteJSON(w io.Writer, records []Record, meta Metadata) error {
	if records == nil {
		records = []Record{}
	}
	meta.TotalResults = len(records)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Metadata: meta, Results: records})
}

// AppendFile adds records to the results file at path, creating it when
// missing. CSV files gain rows after the existing ones; JSON files are
// rewritten with the previous results followed by the new ones.
func AppendFile(path, format string, records []Record, meta Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPerm); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	switch format {
	case FormatCSV, "":
		return appendCSV(path, records)
	case FormatJSON:
		return appendJSON(path, records, meta)
	default:
		return fmt.Errorf("report format %q: %w", format, errors.ErrInvalidOutputFormat)
	}
}

func appendCSV(path string, records []Record) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.FilePerm) //#nosec G304 -- path comes from config
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	if err := WriteCSV(f, records, isNew); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func appendJSON(path string, records []Record, meta Metadata) error {
	var existing Document
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from config
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to parse existing results file %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read results file: %w", err)
	}

	all := append(existing.Results, records...) //nolint:gocritic // existing is discarded
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePerm) //#nosec G304 -- path comes from config
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	if err := WriteJSON(f, all, meta); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
