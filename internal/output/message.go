package output

import (
	"fmt"
	"io"
)

// Message prefixes for human-readable status lines.
const (
	prefixInfo    = "ℹ️  "
	prefixWarn    = "⚠️  "
	prefixSuccess = "✅ "
)

// Infof writes an informational status line.
func Infof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixInfo+fmt.Sprintf(format, args...))
}

// Warnf writes a warning status line.
func Warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixWarn+fmt.Sprintf(format, args...))
}

// Successf writes a success status line.
func Successf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixSuccess+fmt.Sprintf(format, args...))
}
