package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrCSVShape indicates a record whose field count differs from the header.
var ErrCSVShape = errors.New("csv record does not match header")

// WriteCSV writes a header row followed by records as comma-separated UTF-8
// text. Every record must have as many fields as the header.
func WriteCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return fmt.Errorf("%w: record %d has %d fields, want %d", ErrCSVShape, i, len(rec), len(header))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
