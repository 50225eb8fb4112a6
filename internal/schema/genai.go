package schema

import "google.golang.org/genai"

var genaiTypes = map[Type]genai.Type{
	String:  genai.TypeString,
	Number:  genai.TypeNumber,
	Integer: genai.TypeInteger,
	Boolean: genai.TypeBoolean,
	Object:  genai.TypeObject,
	Array:   genai.TypeArray,
}

// Genai converts s into a response schema for constrained model output.
func (s *Schema) Genai() *genai.Schema {
	out := &genai.Schema{
		Type:        genaiTypes[s.Type],
		Description: s.Description,
	}
	if s.Nullable {
		out.Nullable = genai.Ptr(true)
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
		out.Enum = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		out.Items = s.Items.Genai()
	}
	if s.MinItems > 0 {
		out.MinItems = genai.Ptr(int64(s.MinItems))
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, p := range s.Properties {
			out.Properties[p.Name] = p.Schema.Genai()
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
			if p.Required {
				out.Required = append(out.Required, p.Name)
			}
		}
	}
	return out
}
