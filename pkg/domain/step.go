package domain

// Step is a single entry of the form definition.
type Step struct {
	// Field is the identifier the answer is stored under. Unique within a form.
	Field string `json:"field" yaml:"field"`

	// Label is the human-readable name used when the record is rendered.
	Label string `json:"label" yaml:"label"`

	// Prompt is the text sent to the user when the step becomes active.
	Prompt string `json:"prompt" yaml:"prompt"`
}
