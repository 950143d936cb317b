package output

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
)

// JSON writes data as indented JSON to the given writer.
func JSON(w io.Writer, data any) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// JSONError writes a structured error to the given writer as JSON, using
// the same envelope the server responds with.
func JSONError(w io.Writer, code, msg string, details map[string]any) {
	_ = JSON(w, remote.ErrorResponse{Error: msg, Code: code, Details: details})
}

// BatchResult represents the outcome of a single operation within a batch.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
