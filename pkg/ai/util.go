package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when model output holds nothing that parses as JSON.
var ErrNoJSON = errors.New("no json in model output")

// GenerateSchema reflects a JSON Schema for value. Prompts embed it so the
// model knows the exact shape to answer in.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// StripCodeFence removes a surrounding markdown code fence and its language
// tag, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// UnmarshalFlexible decodes model output into out. Model answers are often
// fenced, wrapped in prose, double encoded or slightly malformed, so it
// tries each of those readings before repairing the JSON.
func UnmarshalFlexible(input string, out any) error {
	input = StripCodeFence(input)
	if input == "" {
		return ErrNoJSON
	}
	if json.Unmarshal([]byte(input), out) == nil {
		return nil
	}

	var asString string
	if json.Unmarshal([]byte(input), &asString) == nil {
		input = strings.TrimSpace(asString)
		if json.Unmarshal([]byte(input), out) == nil {
			return nil
		}
	}

	input = cutToJSON(input)
	if input == "" {
		return ErrNoJSON
	}
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("repair model json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal repaired model json: %w", err)
	}
	return nil
}

// cutToJSON drops prose before the first bracket and after the matching
// last one. A doubled opening brace is collapsed.
func cutToJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	s = s[start:]

	closer := "}"
	if s[0] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > 0 {
		s = s[:end+1]
	}

	if rest := strings.TrimSpace(s[1:]); s[0] == '{' && strings.HasPrefix(rest, "{") {
		s = rest
	}
	return s
}
