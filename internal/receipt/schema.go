package receipt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/v1.json
var schemaV1 []byte

const schemaV1URL = "ticketverify.v1.schema.json"

var (
	compiledV1    *jsonschema.Schema
	compiledV1Err error
	compileV1Once sync.Once
)

func loadSchemaV1() (*jsonschema.Schema, error) {
	compileV1Once.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaV1URL, bytes.NewReader(schemaV1)); err != nil {
			compiledV1Err = eris.Wrap(err, "adding v1 schema")
			return
		}
		compiledV1, compiledV1Err = compiler.Compile(schemaV1URL)
		if compiledV1Err != nil {
			compiledV1Err = eris.Wrap(compiledV1Err, "compiling v1 schema")
		}
	})
	return compiledV1, compiledV1Err
}

// ValidateV1 checks a rendered document against the v1 JSON schema
func ValidateV1(data []byte) error {
	schema, err := loadSchemaV1()
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "unmarshaling document")
	}
	if err := schema.Validate(v); err != nil {
		return eris.Wrap(err, "document does not match v1 schema")
	}
	return nil
}
