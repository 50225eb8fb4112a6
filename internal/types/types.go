package types

import (
	"encoding/json"
	"time"
)

// InputKind is the closed set of form controls a question can target.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTextarea InputKind = "textarea"
	InputNumber   InputKind = "number"
	InputRadio    InputKind = "radio"
	InputSelect   InputKind = "select"
	InputTel      InputKind = "tel"
)

// InputKinds lists every accepted InputKind in a stable order.
var InputKinds = []InputKind{InputText, InputTextarea, InputNumber, InputRadio, InputSelect, InputTel}

// IsChoice reports whether answers to this kind pick one of the question's options.
func (k InputKind) IsChoice() bool {
	return k == InputRadio || k == InputSelect
}

// Option is one selectable choice of a radio or select question.
type Option struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	InputID string `json:"inputId" validate:"required"`
}

// QuestionDescriptor is one scraped form field to be answered.
type QuestionDescriptor struct {
	ID           string    `json:"id,omitempty"`
	QuestionText string    `json:"questionText" validate:"required"`
	InputKind    InputKind `json:"inputKind" validate:"required"`
	ElementID    string    `json:"elementId,omitempty"`
	Options      []Option  `json:"options,omitempty" validate:"omitempty,dive"`
}

// AnswerRecord is the model's answer to one QuestionDescriptor.
type AnswerRecord struct {
	ID              string    `json:"id"`
	QuestionText    string    `json:"questionText"`
	AnswerText      string    `json:"answerText"`
	InputKind       InputKind `json:"inputKind"`
	TargetElementID string    `json:"targetElementId"`
	WasGrounded     bool      `json:"wasGrounded"`
}

// QuestionEnvelope is the enveloped request profile of process-questions.
type QuestionEnvelope struct {
	UserID        int64                `json:"userId" validate:"gt=0"`
	ApplicationID string               `json:"applicationId" validate:"required"`
	Platform      string               `json:"platform" validate:"required"`
	Questions     []QuestionDescriptor `json:"questions"`
}

// Submission identifies who submitted a batch. A nil Submission means the
// batch is answered without being recorded.
type Submission struct {
	UserID        int64
	ApplicationID string
	Platform      string
}

// AnswerPair joins a question with its reconciled answer, which may be nil.
type AnswerPair struct {
	Question QuestionDescriptor
	Answer   *AnswerRecord
}

// ReconcileStats counts model answers that did not make it into the result.
type ReconcileStats struct {
	Received   int `json:"received"`
	Matched    int `json:"matched"`
	Unmatched  int `json:"unmatched"`  // id matched no question
	Duplicates int `json:"duplicates"` // earlier occurrences overridden by a later one
	Suppressed int `json:"suppressed"` // targetElementId not valid for the question
	Truncated  int `json:"truncated"`  // answer text shortened by the length policy
}

// BatchResult is the outcome of one pipeline run.
type BatchResult struct {
	Answers []*AnswerRecord `json:"answers"`
	Stats   ReconcileStats  `json:"stats"`
	Usage   *TokenUsage     `json:"usage,omitempty"`
}

// TokenUsage tracks model token consumption for one call.
type TokenUsage struct {
	PromptTokens     int32 `json:"promptTokens"`
	CompletionTokens int32 `json:"completionTokens"`
	TotalTokens      int32 `json:"totalTokens"`
}

// QuestionRecord is one persisted question/answer pair.
type QuestionRecord struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	ApplicationID   string          `json:"applicationId"`
	Platform        string          `json:"platform"`
	QuestionID      string          `json:"questionId"`
	QuestionText    string          `json:"questionText"`
	InputKind       InputKind       `json:"inputKind"`
	ElementID       string          `json:"elementId,omitempty"`
	Options         json.RawMessage `json:"options,omitempty"`
	AIAnswer        *string         `json:"aiAnswer"`
	TargetElementID *string         `json:"targetElementId"`
	WasGrounded     *bool           `json:"wasGrounded"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// JobDetails describes the position a cover letter is written for.
type JobDetails struct {
	Title        string   `json:"title" validate:"required"`
	Company      string   `json:"company" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Requirements []string `json:"requirements,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// CoverLetterRequest is the body of POST /api/generate-cover-letter.
type CoverLetterRequest struct {
	JobDetails JobDetails `json:"jobDetails"`
	UserInput  string     `json:"userInput,omitempty"`
}

// CoverLetterResponse carries the generated letter.
type CoverLetterResponse struct {
	CoverLetter string `json:"coverLetter"`
}

// ChoiceJob is the short job summary sent with radio/checkbox HTML.
type ChoiceJob struct {
	JobTitle    string `json:"jobTitle" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Desc        string `json:"desc" validate:"required"`
}

// ChoiceRequest is the body of the radio and checkbox answer routes.
type ChoiceRequest struct {
	JobDetails ChoiceJob `json:"jobDetails"`
	HTML       string    `json:"html" validate:"required"`
}

// ChoiceMode selects between single and multiple selection.
type ChoiceMode string

const (
	ChoiceRadio    ChoiceMode = "radio"
	ChoiceCheckbox ChoiceMode = "checkbox"
)

// ChoiceAnswer lists the input ids the model selected. Radio answers hold
// exactly one id.
type ChoiceAnswer struct {
	SelectedInputIDs []string `json:"selectedInputIds"`
	Reasoning        string   `json:"reasoning,omitempty"`
}

// User is an applicant account identified by email.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// VerificationToken is a stored email verification token.
type VerificationToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	Verified  bool      `json:"verified"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Resume is an uploaded resume object owned by a user.
type Resume struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	ResumeName string    `json:"resumeName"`
	FileID     string    `json:"fileId"`
	ResumeURL  string    `json:"resumeUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ApplicationStatus is the lifecycle state of a tracked job application.
type ApplicationStatus string

const (
	ApplicationStarted   ApplicationStatus = "STARTED"
	ApplicationCompleted ApplicationStatus = "COMPLETED"
	ApplicationError     ApplicationStatus = "ERROR"
)

// Application is a tracked job application.
type Application struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"userId"`
	Title          string            `json:"title"`
	Employer       string            `json:"employer"`
	JobDesc        string            `json:"jobDesc"`
	ApplicationURL string            `json:"applicationUrl"`
	Status         ApplicationStatus `json:"status"`
	Extra          json.RawMessage   `json:"extra,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// CreateApplicationRequest is the body of POST /api/applications.
type CreateApplicationRequest struct {
	UserID         int64  `json:"userId" validate:"gt=0"`
	JobDesc        string `json:"jobDesc" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Employer       string `json:"employer" validate:"required"`
	ApplicationURL string `json:"applicationUrl" validate:"required,url"`
}

// UpdateApplicationRequest is the body of PATCH /api/applications/{id}.
type UpdateApplicationRequest struct {
	UserID int64             `json:"userId" validate:"gt=0"`
	Status ApplicationStatus `json:"status" validate:"required,oneof=STARTED COMPLETED ERROR"`
}

// LengthPolicy bounds answer text. Mode is "short" (line cap) or "capped"
// (character cap).
type LengthPolicy struct {
	Mode     string
	MaxChars int
	MaxLines int
}
