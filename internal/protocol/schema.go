package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchemaViolation wraps every payload the schema rejects
var ErrSchemaViolation = errors.New("payload violates schema")

//go:embed schema/game_state.schema.json
var gameStateSchema []byte

const gameStateSchemaURL = "game_state.schema.json"

// Validator checks GameState payloads against the embedded JSON schema
// before they are decoded
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(gameStateSchemaURL, bytes.NewReader(gameStateSchema)); err != nil {
		return nil, fmt.Errorf("add game state schema: %w", err)
	}
	s, err := c.Compile(gameStateSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile game state schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// ValidateGameState reports the first schema violation of payload
func (v *Validator) ValidateGameState(payload []byte) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrSchemaViolation, ve.Error())
		}
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
