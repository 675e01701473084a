package cli

import (
	"encoding/json"
	"io"
	"os"
)

// writeJSON prints v as a single JSON line.
func writeJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	return json.NewEncoder(w).Encode(v)
}
