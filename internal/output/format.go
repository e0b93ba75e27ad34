// Package output renders command results as text, JSON, tables and CSV.
//
// Commands build a response value (a scan response, an account list, the
// path table) and hand it to a Formatter. JSON mode encodes the value as is,
// so response structs carry json tags. Text mode prints it line by line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format selects how command results are rendered.
type Format string

const (
	// FormatText is human-readable output for terminals.
	FormatText Format = "text"
	// FormatJSON is machine-readable output for scripts and pipes.
	FormatJSON Format = "json"
	// FormatAuto picks text on a terminal and JSON otherwise.
	FormatAuto Format = "auto"
)

// Formatter writes command results in one format.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter returns a Formatter writing to w. FormatAuto is resolved
// by DetectFormat before this is called.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// Format reports the format results are written in.
func (f *Formatter) Format() Format { return f.format }

// Writer is where results go, for tables and CSV that render themselves.
func (f *Formatter) Writer() io.Writer { return f.w }

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool { return f.format == FormatJSON }

// Print writes v as one result. In JSON mode v is encoded with two-space
// indentation. In text mode strings and Stringers print as a line and
// string slices print one element per line.
func (f *Formatter) Print(v any) error {
	if f.IsJSON() {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var text string
	switch val := v.(type) {
	case string:
		text = val
	case []string:
		text = strings.Join(val, "\n")
	case fmt.Stringer:
		text = val.String()
	default:
		text = fmt.Sprintf("%v", val)
	}
	_, err := io.WriteString(f.w, text+"\n")
	return err
}

// Printf writes formatted text.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.w, format, args...)
	return err
}

// Println writes args as a line of text.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.w, args...)
	return err
}

// DetectFormat resolves FormatAuto against w: text when w is a terminal,
// JSON when output is piped or redirected. Explicit formats pass through.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if IsTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd())) //nolint:gosec // G115: descriptor fits in int
}

// ParseFormat maps a flag or config value to a Format. Unknown values
// resolve to FormatAuto; config validation rejects them earlier.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f
	default:
		return FormatAuto
	}
}
