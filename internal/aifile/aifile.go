// Package aifile reads, validates and writes Aifiles, the portable JSON
// description of an AI (name, format version and chain definition).
package aifile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rcliao/ownai-workshop/internal/model"
)

// MaxVersion is the newest aifileversion this client understands.
const MaxVersion = 1

// ErrInvalid is returned for Aifiles with missing or invalid data.
var ErrInvalid = errors.New("invalid aifile")

var (
	requiredFields   = []string{"name", "aifileversion", "chain"}
	allowedInputKeys = map[string]bool{"input_text": true, "input_knowledge": true}
)

// File is a parsed Aifile.
type File struct {
	Name        string            `json:"name"`
	Version     int               `json:"aifileversion"`
	Chain       map[string]any    `json:"chain"`
	Greeting    string            `json:"greeting,omitempty"`
	InputLabels map[string]string `json:"input_labels,omitempty"`
}

// Parse decodes and validates an Aifile.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &f, nil
}

// Read loads and validates the Aifile at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aifile: %w", err)
	}
	return Parse(data)
}

// Validate checks required fields, input keys and the format version of a
// decoded Aifile.
func Validate(raw map[string]any) error {
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return fmt.Errorf("%w: missing field in aifile: %s", ErrInvalid, field)
		}
	}

	for _, key := range InputKeys(raw) {
		if !allowedInputKeys[key] {
			return fmt.Errorf("%w: unknown input key: %s", ErrInvalid, key)
		}
	}

	version, ok := raw["aifileversion"].(float64)
	if !ok {
		return fmt.Errorf("%w: aifileversion has to be a number", ErrInvalid)
	}
	if version > MaxVersion {
		return fmt.Errorf("%w: this aifile requires a newer version of ownAI", ErrInvalid)
	}
	if _, ok := raw["chain"].(map[string]any); !ok {
		return fmt.Errorf("%w: chain has to be an object", ErrInvalid)
	}
	return nil
}

// InputKeys returns the input keys used anywhere in v: every string leaf that
// starts with "input_" and whose dotted path mentions input_key or
// input_variables.
func InputKeys(v any) []string {
	seen := map[string]bool{}
	walk(v, "", func(path string, leaf any) {
		s, ok := leaf.(string)
		if !ok || !strings.HasPrefix(s, "input_") {
			return
		}
		if strings.Contains(path, "input_key") || strings.Contains(path, "input_variables") {
			seen[s] = true
		}
	})

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func walk(v any, prefix string, visit func(path string, leaf any)) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			walk(child, path, visit)
		}
	case []any:
		for i, child := range node {
			walk(child, prefix+"["+strconv.Itoa(i)+"]", visit)
		}
	default:
		visit(prefix, node)
	}
}

// ToAi builds a pending AI from the Aifile.
func (f *File) ToAi() model.Ai {
	return model.Ai{
		Name:        f.Name,
		InputKeys:   InputKeys(f.Chain),
		InputLabels: f.InputLabels,
		Chain:       f.Chain,
		Greeting:    f.Greeting,
	}
}

// FromAi exports an AI as an Aifile of the current version.
func FromAi(ai model.Ai) *File {
	return &File{
		Name:        ai.Name,
		Version:     MaxVersion,
		Chain:       ai.Chain,
		Greeting:    ai.Greeting,
		InputLabels: ai.InputLabels,
	}
}

// Marshal encodes f the way aifiles are shared: indented JSON.
func Marshal(f *File) ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode aifile: %w", err)
	}
	return append(data, '\n'), nil
}
