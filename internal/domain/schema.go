package domain

// Schema describes a flat JSON object a chat model must produce.
// Properties keep their declaration order so prompts are deterministic.
type Schema struct {
	Name        string
	Description string
	Properties  []SchemaProperty
}

// SchemaProperty is one string field of a Schema. All properties are required.
type SchemaProperty struct {
	Name        string
	Description string
	Enum        []string
}

// JSONSchema renders the schema as a JSON Schema document in strict form.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	required := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		prop := map[string]any{"type": "string"}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		required = append(required, p.Name)
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	return out
}
