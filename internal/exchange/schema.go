package exchange

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const envelopeSchema = "envelope.json"

// Validator checks envelopes against the embedded schemas. It is safe for
// concurrent use once built.
type Validator struct {
	envelope *jsonschema.Schema
	data     map[RoutingKey]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()

	names := []string{envelopeSchema}
	for _, name := range schemaFiles {
		names = append(names, name)
	}
	added := make(map[string]bool, len(names))
	for _, name := range names {
		if added[name] {
			continue
		}
		raw, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", name, err)
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
		added[name] = true
	}

	v := &Validator{data: make(map[RoutingKey]*jsonschema.Schema, len(schemaFiles))}
	var err error
	if v.envelope, err = c.Compile(envelopeSchema); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", envelopeSchema, err)
	}
	for key, name := range schemaFiles {
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", name, err)
		}
		v.data[key] = sch
	}
	return v, nil
}

// Parse decodes and validates a raw envelope.
func (v *Validator) Parse(raw []byte) (Envelope, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := v.envelope.Validate(doc); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := v.Check(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Check validates the data of env against the schema of its routing key.
func (v *Validator) Check(env Envelope) error {
	sch, ok := v.data[env.RoutingKey]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoutingKey, env.RoutingKey)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(env.Data))
	if err != nil {
		return fmt.Errorf("%w: %s data: %w", ErrInvalidMessage, env.RoutingKey, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s data: %w", ErrInvalidMessage, env.RoutingKey, err)
	}
	return nil
}
