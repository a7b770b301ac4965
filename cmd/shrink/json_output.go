package main

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// lineEncoder writes one compact JSON document per line. Safe for use from
// the runner's event callbacks.
type lineEncoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineEncoder(w io.Writer) *lineEncoder {
	return &lineEncoder{enc: json.NewEncoder(w)}
}

func (l *lineEncoder) write(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(v)
}
