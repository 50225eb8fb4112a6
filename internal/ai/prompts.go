package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/profile"
	"formpilot/internal/types"
)

const answerInstructionBase = `You are assisting a job application automation system by answering application form questions on behalf of an applicant. You receive the current date, the applicant profile and a list of questions. Every question has an id; answers must be matched to questions by that id.

Response Format:
- Respond with a JSON array of answer objects, one per question, in the order the questions were given.
- Copy each question's id into the answer's "id" and the question text into "questionText".
- Copy the question's inputKind into "inputKind" unchanged.
- %s

Answering Guidelines:
- Text, textarea, number and tel questions: answer directly from the applicant profile. Set "targetElementId" to the question's elementId.
- Radio and select questions: pick exactly one option. Put the option's value in "answerText" and set "targetElementId" to that option's inputId. Never use an inputId that is not listed in the question's options.
- Availability or start date questions: answer with a date a few days after currentDate. Never answer with a date in the past.

Handling Insufficient Information:
- Set "wasGrounded" to true only when the answer is derived from the applicant profile.
- If the profile does not contain the information, still answer using your best judgment, assuming the applicant exceeds the qualifications, and set "wasGrounded" to false.`

// AnswerInstruction returns the system instruction for question answering
// under the given length policy.
func AnswerInstruction(policy types.LengthPolicy) string {
	var length string
	switch policy.Mode {
	case config.AnswerPolicyShort:
		length = fmt.Sprintf("Keep every answerText concise: a few words or one sentence. If a question explicitly asks for detail, never exceed %d lines.", policy.MaxLines)
	default:
		length = fmt.Sprintf("Keep every answerText concise: a few words or one sentence, and never longer than %d characters.", policy.MaxChars)
	}
	return fmt.Sprintf(answerInstructionBase, length)
}

// answerPayload is the user turn of the answering request. Field order is
// part of the prompt.
type answerPayload struct {
	CurrentDate string                     `json:"currentDate"`
	UserProfile *profile.UserProfile       `json:"userProfile"`
	UserPrompt  string                     `json:"userPrompt"`
	Questions   []types.QuestionDescriptor `json:"questions"`
}

// ComposeAnswerPrompt builds the grounded answering request for a validated
// batch. It performs no I/O.
func ComposeAnswerPrompt(now time.Time, p *profile.UserProfile, questions []types.QuestionDescriptor, policy types.LengthPolicy) Prompt {
	// Marshal cannot fail for these plain data types.
	payload, _ := json.Marshal(answerPayload{
		CurrentDate: now.UTC().Format(time.RFC3339),
		UserProfile: p,
		UserPrompt:  "",
		Questions:   questions,
	})

	return Prompt{
		System: AnswerInstruction(policy),
		User:   string(payload),
		Schema: types.AnswerBatchSchema,
	}
}

const coverLetterInstruction = `You are an experienced career writer. Write a cover letter for the applicant described in the profile, addressed to the hiring team of the given job.

Guidelines:
- Ground every claim in the applicant profile. Never invent employers, titles, degrees or skills.
- Connect the applicant's experience to the job's description and requirements.
- Keep it to three or four short paragraphs, professional and warm in tone.
- End with a sign-off that includes the applicant's name, location and email.
- Return only the letter text without a subject line or markdown.`

// ComposeCoverLetterPrompt builds a single-shot free-text cover letter request.
func ComposeCoverLetterPrompt(p *profile.UserProfile, job types.JobDetails, userInput string) Prompt {
	profileJSON, _ := json.MarshalIndent(p, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Applicant profile:\n%s\n\n", profileJSON)
	fmt.Fprintf(&b, "Job title: %s\nCompany: %s\n", job.Title, job.Company)
	if job.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", job.Location)
	}
	fmt.Fprintf(&b, "\nJob description:\n%s\n", job.Description)
	if len(job.Requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, r := range job.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if userInput = strings.TrimSpace(userInput); userInput != "" {
		fmt.Fprintf(&b, "\nAdditional notes from the applicant (incorporate them):\n%s\n", userInput)
	}

	return Prompt{System: coverLetterInstruction, User: b.String()}
}

const choiceInstruction = `You select answers for %s on a job application form. You receive the applicant profile, a short job summary and the raw HTML of the question.

Guidelines:
- Read the question and the labels of its inputs from the HTML.
- %s
- Return the id attribute of every input you select in "selectedInputIds". Only use ids that appear in the HTML.
- Prefer answers supported by the applicant profile; otherwise choose what best presents a qualified applicant.`

// ComposeChoicePrompt builds a radio or checkbox selection request from a raw
// HTML fragment.
func ComposeChoicePrompt(p *profile.UserProfile, mode types.ChoiceMode, req types.ChoiceRequest) Prompt {
	what, rule := "a radio button group", "Select exactly one input."
	if mode == types.ChoiceCheckbox {
		what, rule = "a group of checkboxes", "Select every input that applies, and at least one."
	}

	profileJSON, _ := json.Marshal(p)
	user := fmt.Sprintf("Applicant profile:\n%s\n\nJob: %s at %s\n%s\n\nQuestion HTML:\n%s",
		profileJSON, req.JobDetails.JobTitle, req.JobDetails.CompanyName, req.JobDetails.Desc, req.HTML)

	return Prompt{
		System: fmt.Sprintf(choiceInstruction, what, rule),
		User:   user,
		Schema: types.ChoiceAnswerSchema,
	}
}
