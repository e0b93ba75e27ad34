package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdwscan/internal/output"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// failingWriter is a writer that always fails.
type failingWriter struct{}

func (failingWriter) Write(_ []byte) (n int, err error) {
	//nolint:err113 // Test error, not wrapped
	return 0, errors.New("write failed")
}

func TestFormatError_NilError(t *testing.T) {
	t.Parallel()

	for _, format := range []output.Format{output.FormatJSON, output.FormatText} {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, nil, format))
		assert.Empty(t, buf.String())
	}
}

func TestFormatError_GenericError(t *testing.T) {
	t.Parallel()

	//nolint:err113 // Test error
	err := errors.New("connection refused")

	var jsonBuf bytes.Buffer
	require.NoError(t, output.FormatError(&jsonBuf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, "connection refused", result.Error.Message)
	assert.Equal(t, hdwerr.ExitGeneral, result.Error.ExitCode)

	var textBuf bytes.Buffer
	require.NoError(t, output.FormatError(&textBuf, err, output.FormatText))
	assert.Equal(t, "Error: connection refused\n", textBuf.String())
}

func TestFormatError_AllFields_JSON(t *testing.T) {
	t.Parallel()

	err := hdwerr.WithDetails(hdwerr.ErrUnknownPath, map[string]string{"label": "SingulerDTV"})
	err = hdwerr.WithSuggestion(err, `did you mean "SingularDTV"?`)

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "UNKNOWN_PATH", result.Error.Code)
	assert.Equal(t, "unknown derivation path", result.Error.Message)
	assert.Equal(t, map[string]string{"label": "SingulerDTV"}, result.Error.Details)
	assert.Equal(t, `did you mean "SingularDTV"?`, result.Error.Suggestion)
	assert.Equal(t, hdwerr.ExitInput, result.Error.ExitCode)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"error\""))
}

func TestFormatError_AllFields_Text(t *testing.T) {
	t.Parallel()

	err := hdwerr.WithDetails(hdwerr.ErrInvalidState, map[string]string{
		"state":     "scanning",
		"operation": "scan more",
	})
	err = hdwerr.WithSuggestion(err, "wait for the scan to complete")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	assert.Equal(t, "Error: operation not allowed in current scan state\n"+
		"\nDetails:\n"+
		"  operation: scan more\n"+
		"  state: scanning\n"+
		"\nSuggestion: wait for the scan to complete\n", buf.String())
}

func TestFormatError_DetailsSorted_Text(t *testing.T) {
	t.Parallel()

	details := map[string]string{"c": "3", "a": "1", "d": "4", "b": "2"}
	err := hdwerr.WithDetails(hdwerr.ErrInvalidAddress, details)

	for range 5 {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, err, output.FormatText))
		assert.Contains(t, buf.String(), "  a: 1\n  b: 2\n  c: 3\n  d: 4\n")
	}
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()

	assert.Error(t, output.FormatError(failingWriter{}, hdwerr.ErrInvalidAddress, output.FormatText))
	assert.Error(t, output.FormatError(failingWriter{}, hdwerr.ErrInvalidAddress, output.FormatJSON))
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var jsonBuf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&jsonBuf, "2 accounts imported", output.FormatJSON))

	var result map[string]string
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &result))
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "2 accounts imported", result["message"])

	var textBuf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&textBuf, "2 accounts imported", output.FormatText))
	assert.Equal(t, "2 accounts imported\n", textBuf.String())

	assert.Error(t, output.FormatSuccess(failingWriter{}, "x", output.FormatText))
}
