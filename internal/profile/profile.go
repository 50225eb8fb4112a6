package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"formpilot/internal/errors"
	"formpilot/internal/schema"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// UserProfile is the applicant's professional snapshot every answer is
// grounded in. It is loaded once and shared read-only.
type UserProfile struct {
	FullName          string            `mapstructure:"fullName" json:"fullName" validate:"required"`
	Email             string            `mapstructure:"email" json:"email" validate:"required,email"`
	Phone             string            `mapstructure:"phone" json:"phone,omitempty"`
	CurrentTitle      string            `mapstructure:"currentTitle" json:"currentTitle,omitempty"`
	Summary           string            `mapstructure:"summary" json:"summary,omitempty"`
	YearsOfExperience int               `mapstructure:"yearsOfExperience" json:"yearsOfExperience" validate:"gte=0"`
	Location          Location          `mapstructure:"location" json:"location"`
	Citizenship       string            `mapstructure:"citizenship" json:"citizenship,omitempty"`
	WorkAuthorization string            `mapstructure:"workAuthorization" json:"workAuthorization,omitempty"`
	WillingToRelocate bool              `mapstructure:"willingToRelocate" json:"willingToRelocate"`
	Skills            []string          `mapstructure:"skills" json:"skills,omitempty"`
	Languages         []Language        `mapstructure:"languages" json:"languages,omitempty" validate:"dive"`
	Education         []Education       `mapstructure:"education" json:"education,omitempty" validate:"dive"`
	Experience        []Experience      `mapstructure:"experience" json:"experience,omitempty" validate:"dive"`
	Portfolio         Portfolio         `mapstructure:"portfolio" json:"portfolio"`
	Availability      Availability      `mapstructure:"availability" json:"availability"`
	SalaryExpectation string            `mapstructure:"salaryExpectation" json:"salaryExpectation,omitempty"`
	Extra             map[string]string `mapstructure:"extra" json:"extra,omitempty"`
}

type Location struct {
	City    string `mapstructure:"city" json:"city,omitempty"`
	Region  string `mapstructure:"region" json:"region,omitempty"`
	Country string `mapstructure:"country" json:"country,omitempty"`
}

type Language struct {
	Name        string `mapstructure:"name" json:"name" validate:"required"`
	Proficiency string `mapstructure:"proficiency" json:"proficiency,omitempty"`
}

type Education struct {
	Degree         string `mapstructure:"degree" json:"degree" validate:"required"`
	Field          string `mapstructure:"field" json:"field,omitempty"`
	Institution    string `mapstructure:"institution" json:"institution" validate:"required"`
	GraduationYear int    `mapstructure:"graduationYear" json:"graduationYear,omitempty"`
}

type Experience struct {
	Title      string   `mapstructure:"title" json:"title" validate:"required"`
	Company    string   `mapstructure:"company" json:"company" validate:"required"`
	Start      string   `mapstructure:"start" json:"start,omitempty"`
	End        string   `mapstructure:"end" json:"end,omitempty"`
	Highlights []string `mapstructure:"highlights" json:"highlights,omitempty"`
}

type Portfolio struct {
	Website  string `mapstructure:"website" json:"website,omitempty" validate:"omitempty,url"`
	GitHub   string `mapstructure:"github" json:"github,omitempty" validate:"omitempty,url"`
	LinkedIn string `mapstructure:"linkedin" json:"linkedin,omitempty" validate:"omitempty,url"`
}

type Availability struct {
	NoticePeriod string `mapstructure:"noticePeriod" json:"noticePeriod,omitempty"`
	Remote       bool   `mapstructure:"remote" json:"remote"`
	Hybrid       bool   `mapstructure:"hybrid" json:"hybrid"`
	OnSite       bool   `mapstructure:"onSite" json:"onSite"`
}

// Load reads a profile from a YAML, JSON or TOML file.
func Load(path string) (*UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read profile file", err).
			WithContext("path", path)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "yml" {
		format = "yaml"
	}
	decodeRaw, ok := rawDecoders[format]
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported profile format %q (use yaml, json or toml)", format), nil).
			WithContext("path", path)
	}

	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidFormat, "failed to parse profile", err).
			WithContext("path", path)
	}

	var p UserProfile
	if err := v.Unmarshal(&p); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidFormat, "failed to decode profile", err).
			WithContext("path", path)
	}

	// viper folds every key to lower case; extra keys reach the prompt as
	// labels, so they are decoded again as written.
	var raw struct {
		Extra map[string]string `json:"extra" yaml:"extra" toml:"extra"`
	}
	if err := decodeRaw(data, &raw); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidFormat, "profile extra values must be strings", err).
			WithContext("path", path)
	}
	p.Extra = raw.Extra

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

var rawDecoders = map[string]func([]byte, any) error{
	"yaml": yaml.Unmarshal,
	"json": json.Unmarshal,
	"toml": toml.Unmarshal,
}

// Validate checks the profile's field rules.
func (p *UserProfile) Validate() error {
	if vs := schema.Struct(p, "profile"); len(vs) > 0 {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid user profile", nil).WithViolations(vs)
	}
	return nil
}

// String renders a short human summary, used by the profile command.
func (p *UserProfile) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>\n", p.FullName, p.Email)
	if p.CurrentTitle != "" {
		fmt.Fprintf(&b, "%s, %d years of experience\n", p.CurrentTitle, p.YearsOfExperience)
	}
	loc := strings.Join(nonEmpty(p.Location.City, p.Location.Region, p.Location.Country), ", ")
	if loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	fmt.Fprintf(&b, "Education: %d, Experience: %d, Languages: %d\n", len(p.Education), len(p.Experience), len(p.Languages))
	return b.String()
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
