package config

import (
	"errors"

	"github.com/invopop/jsonschema"
)

var (
	ErrGeneratedSchemaIsNil = errors.New("generated JSON Schema is nil")
)

// JSONSchema reflects Config into a JSON Schema document for editor tooling.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		FieldNameTag: "mapstructure",
	}
	schema := reflector.Reflect(&Config{})

	if schema == nil {
		return nil, ErrGeneratedSchemaIsNil
	}

	return schema.MarshalJSON()
}
