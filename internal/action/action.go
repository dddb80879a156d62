// Package action exposes the tool's action manifest: a structured
// description of each subcommand (name, command template with placeholders,
// typed parameter list) consumable by a host integration. The manifest is
// opaque to the pipeline and unrelated to runtime behavior.
package action

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed manifest.json
var manifestJSON []byte

//go:embed schema.json
var schemaJSON []byte

// Arg is one typed parameter of an action.
type Arg struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Value       any    `json:"value,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Action describes one invokable command.
type Action struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Program     string `json:"program"`
	Args        []Arg  `json:"args"`
}

// Manifest is the full action catalog.
type Manifest struct {
	Version string   `json:"version"`
	Actions []Action `json:"actions"`
}

// Load parses and schema-validates the embedded manifest.
func Load() (*Manifest, error) {
	if err := Validate(manifestJSON); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("failed to parse action manifest: %w", err)
	}
	return &m, nil
}

// Validate checks manifest data against the embedded JSON schema.
func Validate(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to load manifest schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

// Write copies the raw manifest to w.
func Write(w io.Writer) error {
	_, err := w.Write(manifestJSON)
	return err
}

// WriteFile copies the raw manifest to path.
func WriteFile(path string) error {
	return os.WriteFile(path, manifestJSON, 0o644)
}
