package llm

// Schema is a JSON-Schema-shaped parameter description consumable by both
// provider adapters: object types with named properties, required lists, and
// nested arrays/objects.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// ToolSpec declares one callable operation: its external name, a natural
// language description for the model, and the parameter schema.
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

// ObjectSchema builds an object schema from properties and required names
func ObjectSchema(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

// StringSchema builds a string schema with a description
func StringSchema(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// NumberSchema builds a number schema with a description
func NumberSchema(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}

// IntegerSchema builds an integer schema with a description
func IntegerSchema(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

// ArraySchema builds an array schema with the given item schema
func ArraySchema(description string, items *Schema) *Schema {
	return &Schema{Type: "array", Description: description, Items: items}
}
