package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Output formats for commands that print results.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown format %q: want %q or %q", format, formatJSON, formatYAML)
	}
	return nil
}

// createFile writes path through write. The close error of a written file is
// returned, and a file that failed to write is removed.
func createFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return write(f)
}

func writeResult(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: want %q or %q", format, formatJSON, formatYAML)
	}
}
