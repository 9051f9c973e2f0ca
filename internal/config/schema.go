package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaData []byte

const schemaURL = "config.schema.json"

var (
	fileSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchema compiles the embedded schema once
func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}

		fileSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
		}
	})

	return compileErr
}

// ValidateDocument validates a YAML (or JSON) configuration document against the schema
func ValidateDocument(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		// An empty file is a valid, empty configuration
		return nil
	}

	// Normalize through JSON so the validator sees JSON types only
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := fileSchema.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}
