package services

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jobledger/backend/internal/models"
)

// ErrInvalidRules wraps every failure to read a settings rules document.
var ErrInvalidRules = errors.New("invalid settings rules")

//go:embed schema/rules.v1.json
var rulesSchema string

const rulesSchemaID = "https://jobledger.dev/schemas/rules.v1.json"

type RulesValidator struct {
	schema *jsonschema.Schema
}

// NewRulesValidator compiles the embedded rules schema.
func NewRulesValidator() (*RulesValidator, error) {
	schema, err := jsonschema.CompileString(rulesSchemaID, rulesSchema)
	if err != nil {
		return nil, fmt.Errorf("compile rules schema: %w", err)
	}
	return &RulesValidator{schema: schema}, nil
}

// Parse validates raw against the rules schema and decodes it. Omitted fee mode
// and base default to percent and net.
func (v *RulesValidator) Parse(raw []byte) (models.Rules, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return models.Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return models.Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	var rules models.Rules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return models.Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if rules.PlatformFee.Mode == "" {
		rules.PlatformFee.Mode = models.FeePercent
	}
	if rules.PlatformFee.ApplyOn == "" {
		rules.PlatformFee.ApplyOn = models.FeeOnNet
	}
	return rules, nil
}

// EncodeRules is the inverse of Parse, used at the persistence boundary.
func EncodeRules(rules models.Rules) ([]byte, error) {
	return json.Marshal(rules)
}
