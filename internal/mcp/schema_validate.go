package mcp

// HasValidTypes reports whether every node in an MCP tool's input schema
// carries either a "type" or a non-empty "anyOf"/"allOf"/"oneOf". Servers
// that advertise a schema failing this check are rejected during tool
// discovery rather than registered with a Gemini declaration that would
// silently default every untyped node to string.
func HasValidTypes(schema *JSONSchema) bool {
	return hasValidTypesNode(schema)
}

func hasValidTypesNode(schema *JSONSchema) bool {
	if schema == nil {
		return true
	}

	if schema.Type == "" && len(schema.AnyOf) == 0 && len(schema.AllOf) == 0 && len(schema.OneOf) == 0 {
		return false
	}

	if schema.Items != nil && !hasValidTypesNode(schema.Items) {
		return false
	}

	for _, prop := range schema.Properties {
		if !hasValidTypesNode(prop) {
			return false
		}
	}

	for _, sub := range schema.AnyOf {
		if !hasValidTypesNode(sub) {
			return false
		}
	}
	for _, sub := range schema.AllOf {
		if !hasValidTypesNode(sub) {
			return false
		}
	}
	for _, sub := range schema.OneOf {
		if !hasValidTypesNode(sub) {
			return false
		}
	}

	return true
}
