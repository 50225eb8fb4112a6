package types

import "formpilot/internal/schema"

func inputKindNames() []string {
	names := make([]string, len(InputKinds))
	for i, k := range InputKinds {
		names[i] = string(k)
	}
	return names
}

func str(description string) *schema.Schema {
	return &schema.Schema{Type: schema.String, Description: description}
}

// OptionSchema is the shape of one choice option.
var OptionSchema = &schema.Schema{
	Type: schema.Object,
	Properties: []schema.Property{
		{Name: "value", Schema: str(""), Required: true},
		{Name: "label", Schema: str(""), Required: true},
		{Name: "inputId", Schema: str("Id of the control that selects this option."), Required: true},
	},
}

// QuestionSchema is the shape of one QuestionDescriptor.
var QuestionSchema = &schema.Schema{
	Type: schema.Object,
	Properties: []schema.Property{
		{Name: "id", Schema: str("Identifier of the question, unique within the batch.")},
		{Name: "questionText", Schema: str("The question as shown on the form."), Required: true},
		{Name: "inputKind", Schema: &schema.Schema{Type: schema.String, Enum: inputKindNames()}, Required: true},
		{Name: "elementId", Schema: str("Id of the element receiving a free-text answer.")},
		{Name: "options", Schema: &schema.Schema{Type: schema.Array, Items: OptionSchema}},
	},
}

// QuestionBatchSchema is the bare request profile: a non-empty array of questions.
var QuestionBatchSchema = &schema.Schema{
	Type:     schema.Array,
	Items:    QuestionSchema,
	MinItems: 1,
}

// QuestionEnvelopeSchema is the enveloped request profile.
var QuestionEnvelopeSchema = &schema.Schema{
	Type: schema.Object,
	Properties: []schema.Property{
		{Name: "userId", Schema: &schema.Schema{Type: schema.Integer}, Required: true},
		{Name: "applicationId", Schema: str(""), Required: true},
		{Name: "platform", Schema: str(""), Required: true},
		{Name: "questions", Schema: QuestionBatchSchema, Required: true},
	},
}

// AnswerSchema is the shape of one AnswerRecord, used both to constrain the
// model and to check what it returned.
var AnswerSchema = &schema.Schema{
	Type: schema.Object,
	Properties: []schema.Property{
		{Name: "id", Schema: str("The id of the question being answered, copied exactly."), Required: true},
		{Name: "questionText", Schema: str("The exact question that was asked."), Required: true},
		{Name: "answerText", Schema: str("The answer to place into the form."), Required: true},
		{
			Name: "inputKind",
			Schema: &schema.Schema{
				Type:        schema.String,
				Enum:        inputKindNames(),
				Description: "The input kind as provided in the question object.",
			},
			Required: true,
		},
		{
			Name: "targetElementId",
			Schema: str("Id of the element receiving the answer. For free-text kinds this is the question's elementId; " +
				"for radio and select it is the inputId of the chosen option."),
			Required: true,
		},
		{
			Name: "wasGrounded",
			Schema: &schema.Schema{
				Type:        schema.Boolean,
				Description: "True only when the answer was derived from the applicant profile.",
			},
			Required: true,
		},
	},
}

// AnswerBatchSchema is the shape of the model's answer array.
var AnswerBatchSchema = &schema.Schema{
	Type:  schema.Array,
	Items: AnswerSchema,
}

// ChoiceAnswerSchema constrains radio and checkbox selections.
var ChoiceAnswerSchema = &schema.Schema{
	Type: schema.Object,
	Properties: []schema.Property{
		{
			Name: "selectedInputIds",
			Schema: &schema.Schema{
				Type:        schema.Array,
				Items:       str("The id attribute of a selected input."),
				Description: "Ids of the inputs to check.",
			},
			Required: true,
		},
		{Name: "reasoning", Schema: str("One short sentence explaining the choice.")},
	},
}
