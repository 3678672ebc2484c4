package tools

import (
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// GenerateSchema reflects over a Go struct (a tool's argument type) and
// produces the equivalent Gemini function-call schema, so a tool's
// Declaration() can stay in sync with the struct its Execute parses instead
// of drifting from a hand-written literal.
func GenerateSchema(args any) *genai.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(args)
	if schema == nil {
		return nil
	}
	return convertReflectedSchema(schema)
}

func convertReflectedSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}

	switch s.Type {
	case "string":
		out.Type = genai.TypeString
		for _, e := range s.Enum {
			if str, ok := e.(string); ok {
				out.Enum = append(out.Enum, str)
			}
		}
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if s.Items != nil {
			out.Items = convertReflectedSchema(s.Items)
		}
	default:
		out.Type = genai.TypeObject
		if s.Properties != nil {
			out.Properties = make(map[string]*genai.Schema)
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				out.Properties[pair.Key] = convertReflectedSchema(pair.Value)
			}
		}
	}

	return out
}
