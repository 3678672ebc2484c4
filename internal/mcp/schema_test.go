package mcp

import (
	"testing"

	"google.golang.org/genai"
)

func TestConvertMCPSchemaToGeminiPrimitives(t *testing.T) {
	tests := []struct {
		name string
		in   *JSONSchema
		want genai.Type
	}{
		{"string", &JSONSchema{Type: "string"}, genai.TypeString},
		{"number", &JSONSchema{Type: "number"}, genai.TypeNumber},
		{"integer", &JSONSchema{Type: "integer"}, genai.TypeInteger},
		{"boolean", &JSONSchema{Type: "boolean"}, genai.TypeBoolean},
		{"unknown type defaults to string", &JSONSchema{Type: "null"}, genai.TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertMCPSchemaToGemini(tt.in)
			if got.Type != tt.want {
				t.Fatalf("Type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestConvertMCPSchemaToGeminiNil(t *testing.T) {
	if got := ConvertMCPSchemaToGemini(nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestConvertMCPSchemaToGeminiObject(t *testing.T) {
	mcpSchema := &JSONSchema{
		Type:     "object",
		Required: []string{"path"},
		Properties: map[string]*JSONSchema{
			"path":      {Type: "string"},
			"recursive": {Type: "boolean"},
		},
	}

	got := ConvertMCPSchemaToGemini(mcpSchema)
	if got.Type != genai.TypeObject {
		t.Fatalf("Type = %v, want object", got.Type)
	}
	if len(got.Properties) != 2 {
		t.Fatalf("Properties = %d, want 2", len(got.Properties))
	}
	if got.Properties["path"].Type != genai.TypeString {
		t.Fatalf("path.Type = %v, want string", got.Properties["path"].Type)
	}
	if len(got.Required) != 1 || got.Required[0] != "path" {
		t.Fatalf("Required = %v, want [path]", got.Required)
	}
}

func TestConvertMCPSchemaToGeminiArray(t *testing.T) {
	mcpSchema := &JSONSchema{
		Type:  "array",
		Items: &JSONSchema{Type: "integer"},
	}
	got := ConvertMCPSchemaToGemini(mcpSchema)
	if got.Type != genai.TypeArray {
		t.Fatalf("Type = %v, want array", got.Type)
	}
	if got.Items == nil || got.Items.Type != genai.TypeInteger {
		t.Fatalf("Items = %+v, want integer item schema", got.Items)
	}
}

// Schema round-trips through MCP -> Gemini -> MCP should preserve shape,
// per spec.md section 8's round-trip/idempotence properties.
func TestSchemaRoundTrip(t *testing.T) {
	original := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"query": {Type: "string"},
			"limit": {Type: "integer"},
		},
		Required: []string{"query"},
	}

	roundTripped := ConvertGeminiSchemaToMCP(ConvertMCPSchemaToGemini(original))

	if roundTripped.Type != original.Type {
		t.Fatalf("Type = %q, want %q", roundTripped.Type, original.Type)
	}
	if len(roundTripped.Properties) != len(original.Properties) {
		t.Fatalf("Properties count = %d, want %d", len(roundTripped.Properties), len(original.Properties))
	}
	for name, prop := range original.Properties {
		rt, ok := roundTripped.Properties[name]
		if !ok {
			t.Fatalf("missing property %q after round trip", name)
		}
		if rt.Type != prop.Type {
			t.Fatalf("property %q type = %q, want %q", name, rt.Type, prop.Type)
		}
	}
	if len(roundTripped.Required) != 1 || roundTripped.Required[0] != "query" {
		t.Fatalf("Required = %v, want [query]", roundTripped.Required)
	}
}

func TestConvertMCPToolToDeclarationPrefixAndSanitize(t *testing.T) {
	tool := &ToolInfo{
		Name:        "read-file.v2",
		Description: "Reads a file from disk",
		InputSchema: &JSONSchema{Type: "object"},
	}

	decl := ConvertMCPToolToDeclaration(tool, "fs server")
	if decl.Name != "fs_server_read_file_v2" {
		t.Fatalf("Name = %q, want fs_server_read_file_v2", decl.Name)
	}
	if decl.Description != tool.Description {
		t.Fatalf("Description = %q, want %q", decl.Description, tool.Description)
	}
}

func TestConvertMCPToolToDeclarationNil(t *testing.T) {
	if got := ConvertMCPToolToDeclaration(nil, ""); got != nil {
		t.Fatalf("expected nil declaration for nil tool, got %+v", got)
	}
}

func TestSanitizeFunctionNameLeadingDigit(t *testing.T) {
	// Numbers can't lead a Gemini function name.
	got := sanitizeFunctionName("123tool")
	if len(got) == 0 || got[0] != '_' {
		t.Fatalf("sanitizeFunctionName(%q) = %q, want leading underscore", "123tool", got)
	}
}

func TestSanitizeFunctionNameEmpty(t *testing.T) {
	if got := sanitizeFunctionName(""); got != "unnamed_tool" {
		t.Fatalf("sanitizeFunctionName(\"\") = %q, want unnamed_tool", got)
	}
}
