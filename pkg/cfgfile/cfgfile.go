// Package cfgfile decodes the YAML or JSON files that hold selector
// overrides, watch lists and publisher definitions.
package cfgfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	exts []string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{exts: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
	{exts: []string{".json"}, fn: json.Unmarshal},
}

// Read loads path into out. what names the file in errors ("watch list").
func Read(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s path is empty", what)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	return Decode(raw, filepath.Ext(path), what, out)
}

// Decode unmarshals data with the decoder matching ext. An unknown or empty
// extension tries YAML, then JSON.
func Decode(data []byte, ext, what string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	candidates := decoders
	for _, d := range decoders {
		for _, e := range d.exts {
			if e == ext {
				candidates = []decoder{d}
			}
		}
	}

	var lastErr error
	for _, d := range candidates {
		if lastErr = d.fn(data, out); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%s format not recognized (expected YAML or JSON): %w", what, lastErr)
}
