package profile

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/insight/errors"
)

// recordSchema is the JSON schema every persisted profile record must pass
// before it is loaded. Only the identity and lifecycle fields are strict;
// everything else falls back to zero values so old documents keep loading
// after field additions.
const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["entity_id", "is_initialized"],
	"properties": {
		"entity_id": {
			"type": "string",
			"minLength": 1
		},
		"is_initialized": {
			"type": "boolean"
		},
		"last_analyzed_at": {
			"type": "string",
			"format": "date-time"
		},
		"health_score": {
			"type": "integer",
			"minimum": 0,
			"maximum": 100
		}
	}
}`

// recordValidator is compiled once at package init; the schema is a constant
// so a compile failure is a programming error.
var recordValidator *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		panic(fmt.Sprintf("profile: record schema does not compile: %v", err))
	}
	recordValidator = schema
}

// validateRecord checks one raw persisted record against the schema. Returns
// a classified invalid error listing every violated field so the caller can
// log and skip the record.
func validateRecord(raw json.RawMessage) error {
	result, err := recordValidator.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.WrapInvalid(errors.ErrParsingFailed, "profile", "validateRecord",
			fmt.Sprintf("record is not valid JSON: %v", err))
	}

	if !result.Valid() {
		msg := "record failed schema validation:"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf(" %s: %s;", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(errors.ErrProfileInvalid, "profile", "validateRecord", msg)
	}

	return nil
}
