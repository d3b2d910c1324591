package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nbsync/internal/protocol"
)

// registrationFile is the YAML and JSON document shape.
type registrationFile struct {
	Registrations []protocol.Registration `json:"registrations" yaml:"registrations"`
}

// LoadFile reads registrations from a .cue, .yaml, .yml or .json file.
// It only parses; callers run Validate or ValidateAll on the result.
func LoadFile(path string) ([]protocol.Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes registrations, choosing the format from the file extension
// of name.
func Parse(data []byte, name string) ([]protocol.Registration, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		return CompileCUE(data, name)
	case ".yaml", ".yml":
		var f registrationFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return f.Registrations, nil
	case ".json":
		var f registrationFile
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return f.Registrations, nil
	default:
		return nil, fmt.Errorf("parse %s: unsupported extension %q (want .cue, .yaml, .yml or .json)", name, ext)
	}
}
