// Package profile loads player profiles. A profile is an opaque JSON
// document; only its syntax is checked and its bytes are kept verbatim.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrFormat marks a profile that is not well-formed JSON.
var ErrFormat = errors.New("invalid player profile")

// Profile is a raw JSON document. Key order survives re-encoding.
type Profile json.RawMessage

// Parse validates data as a single JSON value
func Parse(data []byte) (Profile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFormat)
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrFormat)
	}
	return Profile(append([]byte(nil), trimmed...)), nil
}

// Load reads and validates the profile at path
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read player profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// MarshalJSON emits the document as loaded
func (p Profile) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return []byte(p), nil
}
