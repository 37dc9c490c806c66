package agent

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/verbatim/internal/llm"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var printer = message.NewPrinter(language.English)

var (
	claimsSchema = mustCompileSchema("claims.schema.json")
	reviewSchema = mustCompileSchema("review.schema.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to read embedded %s: %v", name, err))
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// SchemaError lists why a model response did not match the expected shape.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "response does not match schema: " + strings.Join(e.Problems, "; ")
}

// decodeResponse finds the first JSON value in a model response that
// satisfies schema, either at the root or as an array under one of an
// object's fields, and unmarshals it into out.
func decodeResponse(text string, schema *jsonschema.Schema, out any) error {
	text = llm.CleanJSON(text)

	var firstErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}

		for _, cand := range candidates(raw) {
			err := checkSchema(schema, cand)
			if err == nil {
				return json.Unmarshal(cand, out)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return fmt.Errorf("no JSON found in response: %s", truncateString(text, 200))
}

func candidates(raw json.RawMessage) []json.RawMessage {
	out := []json.RawMessage{raw}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return out
	}
	for _, key := range []string{"claims", "review", "results", "items"} {
		if field, ok := wrapper[key]; ok {
			out = append(out, field)
		}
	}
	return out
}

func checkSchema(schema *jsonschema.Schema, raw json.RawMessage) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	se := &SchemaError{}
	collectProblems(ve, se)
	return se
}

func collectProblems(ve *jsonschema.ValidationError, se *SchemaError) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		se.Problems = append(se.Problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collectProblems(c, se)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
