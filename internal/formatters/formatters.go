package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"formpilot/internal/profile"
	"formpilot/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "BatchResult", &BatchTextFormatter{})
	registry.RegisterFormatter("markdown", "BatchResult", &BatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "CoverLetterResponse", &CoverLetterTextFormatter{})
	registry.RegisterFormatter("markdown", "CoverLetterResponse", &CoverLetterMarkdownFormatter{})
	registry.RegisterFormatter("text", "UserProfile", &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", "UserProfile", &ProfileMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.BatchResult:
		return "BatchResult"
	case *types.CoverLetterResponse:
		return "CoverLetterResponse"
	case *profile.UserProfile:
		return "UserProfile"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// BatchTextFormatter handles text formatting for answered question batches
type BatchTextFormatter struct{}

func (btf *BatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.BatchResult)
	if !ok {
		return "", fmt.Errorf("expected *BatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ANSWERS ===\n\n")
	for i, a := range result.Answers {
		fmt.Fprintf(&output, "%d. [%s] %s (%s)\n", i+1, a.ID, a.QuestionText, a.InputKind)
		fmt.Fprintf(&output, "   Answer: %s\n", a.AnswerText)
		if a.TargetElementID != "" {
			fmt.Fprintf(&output, "   Target: %s\n", a.TargetElementID)
		}
		fmt.Fprintf(&output, "   Grounded: %s\n\n", yesNo(a.WasGrounded))
	}

	s := result.Stats
	output.WriteString("=== RECONCILIATION ===\n")
	fmt.Fprintf(&output, "Received: %d, Matched: %d, Unmatched: %d, Duplicates: %d, Suppressed: %d, Truncated: %d\n",
		s.Received, s.Matched, s.Unmatched, s.Duplicates, s.Suppressed, s.Truncated)

	return output.String(), nil
}

func (btf *BatchTextFormatter) SupportedType() string {
	return "BatchResult"
}

// BatchMarkdownFormatter handles markdown formatting for answered question batches
type BatchMarkdownFormatter struct{}

func (bmf *BatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.BatchResult)
	if !ok {
		return "", fmt.Errorf("expected *BatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Answers\n\n")
	output.WriteString("| ID | Question | Kind | Answer | Target | Grounded |\n")
	output.WriteString("|---|---|---|---|---|---|\n")
	for _, a := range result.Answers {
		fmt.Fprintf(&output, "| %s | %s | %s | %s | %s | %s |\n",
			a.ID, cell(a.QuestionText), a.InputKind, cell(a.AnswerText), a.TargetElementID, yesNo(a.WasGrounded))
	}

	s := result.Stats
	output.WriteString("\n## Reconciliation\n\n")
	fmt.Fprintf(&output, "- **Received:** %d\n- **Matched:** %d\n- **Unmatched:** %d\n", s.Received, s.Matched, s.Unmatched)
	fmt.Fprintf(&output, "- **Duplicates:** %d\n- **Suppressed:** %d\n- **Truncated:** %d\n", s.Duplicates, s.Suppressed, s.Truncated)

	return output.String(), nil
}

func (bmf *BatchMarkdownFormatter) SupportedType() string {
	return "BatchResult"
}

// cell makes text safe for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// CoverLetterTextFormatter prints the letter as is
type CoverLetterTextFormatter struct{}

func (ctf *CoverLetterTextFormatter) Format(data any) (string, error) {
	letter, ok := data.(*types.CoverLetterResponse)
	if !ok {
		return "", fmt.Errorf("expected *CoverLetterResponse, got %T", data)
	}
	return strings.TrimRight(letter.CoverLetter, "\n") + "\n", nil
}

func (ctf *CoverLetterTextFormatter) SupportedType() string {
	return "CoverLetterResponse"
}

// CoverLetterMarkdownFormatter handles markdown formatting for cover letters
type CoverLetterMarkdownFormatter struct{}

func (cmf *CoverLetterMarkdownFormatter) Format(data any) (string, error) {
	letter, ok := data.(*types.CoverLetterResponse)
	if !ok {
		return "", fmt.Errorf("expected *CoverLetterResponse, got %T", data)
	}
	return "# Cover Letter\n\n" + strings.TrimRight(letter.CoverLetter, "\n") + "\n", nil
}

func (cmf *CoverLetterMarkdownFormatter) SupportedType() string {
	return "CoverLetterResponse"
}

// ProfileTextFormatter prints the profile summary
type ProfileTextFormatter struct{}

func (ptf *ProfileTextFormatter) Format(data any) (string, error) {
	p, ok := data.(*profile.UserProfile)
	if !ok {
		return "", fmt.Errorf("expected *UserProfile, got %T", data)
	}
	return p.String(), nil
}

func (ptf *ProfileTextFormatter) SupportedType() string {
	return "UserProfile"
}

// ProfileMarkdownFormatter handles markdown formatting for the profile
type ProfileMarkdownFormatter struct{}

func (pmf *ProfileMarkdownFormatter) Format(data any) (string, error) {
	p, ok := data.(*profile.UserProfile)
	if !ok {
		return "", fmt.Errorf("expected *UserProfile, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n\n", p.FullName)
	if p.CurrentTitle != "" {
		fmt.Fprintf(&output, "**%s**, %d years of experience\n\n", p.CurrentTitle, p.YearsOfExperience)
	}
	if p.Summary != "" {
		output.WriteString(p.Summary)
		output.WriteString("\n\n")
	}
	if len(p.Skills) > 0 {
		output.WriteString("## Skills\n\n")
		for _, s := range p.Skills {
			fmt.Fprintf(&output, "- %s\n", s)
		}
		output.WriteString("\n")
	}
	if len(p.Experience) > 0 {
		output.WriteString("## Experience\n\n")
		for _, e := range p.Experience {
			fmt.Fprintf(&output, "### %s, %s\n", e.Title, e.Company)
			for _, h := range e.Highlights {
				fmt.Fprintf(&output, "- %s\n", h)
			}
			output.WriteString("\n")
		}
	}
	if len(p.Education) > 0 {
		output.WriteString("## Education\n\n")
		for _, e := range p.Education {
			fmt.Fprintf(&output, "- %s, %s\n", e.Degree, e.Institution)
		}
	}

	return output.String(), nil
}

func (pmf *ProfileMarkdownFormatter) SupportedType() string {
	return "UserProfile"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
