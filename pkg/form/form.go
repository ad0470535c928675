package form

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/aretw0/intake/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Definition is the ordered list of steps plus the fixed texts around them.
// It is immutable once constructed.
type Definition struct {
	CancelKeyword string        `yaml:"cancel_keyword" json:"cancel_keyword"`
	CompletedText string        `yaml:"completed_text" json:"completed_text"`
	CancelledText string        `yaml:"cancelled_text" json:"cancelled_text"`
	Steps         []domain.Step `yaml:"steps" json:"steps"`
}

// New builds a validated definition from steps, using the default texts.
func New(steps ...domain.Step) (*Definition, error) {
	base := Default()
	def := &Definition{
		CancelKeyword: base.CancelKeyword,
		CompletedText: base.CompletedText,
		CancelledText: base.CancelledText,
		Steps:         append([]domain.Step(nil), steps...),
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Default returns the embedded seven-field registration form.
func Default() *Definition {
	def, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded form is invalid: %v", err))
	}
	return def
}

// Load reads and validates a definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading form file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a YAML definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks structural integrity: at least one step, unique non-empty
// field names, non-empty prompts and a cancel keyword.
func (d *Definition) Validate() error {
	var errs []error
	if d.CancelKeyword == "" {
		errs = append(errs, &ValidationError{Key: "cancel_keyword", Reason: "required"})
	}
	if len(d.Steps) == 0 {
		errs = append(errs, &ValidationError{Key: "steps", Reason: "at least one step is required"})
	}

	seen := make(map[string]int, len(d.Steps))
	for i, s := range d.Steps {
		key := fmt.Sprintf("steps[%d]", i)
		if s.Field == "" {
			errs = append(errs, &ValidationError{Key: key + ".field", Reason: "required"})
		} else if prev, dup := seen[s.Field]; dup {
			errs = append(errs, &ValidationError{
				Key:    key + ".field",
				Reason: fmt.Sprintf("duplicate field %q (first defined at steps[%d])", s.Field, prev),
			})
		} else {
			seen[s.Field] = i
		}
		if s.Prompt == "" {
			errs = append(errs, &ValidationError{Key: key + ".prompt", Reason: "required"})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// StepAt returns the step at index. Indices come from the engine and are always in range.
func (d *Definition) StepAt(index int) domain.Step {
	return d.Steps[index]
}

// StepCount returns the number of steps.
func (d *Definition) StepCount() int {
	return len(d.Steps)
}

// IsLast reports whether index is the final step.
func (d *Definition) IsLast(index int) bool {
	return index == len(d.Steps)-1
}

// Label returns the display label for a step, falling back to its field name.
func (d *Definition) Label(index int) string {
	s := d.Steps[index]
	if s.Label != "" {
		return s.Label
	}
	return s.Field
}

// Record compiles answers into labelled fields in definition order.
// Steps without an answer are skipped.
func (d *Definition) Record(session *domain.Session) []domain.Field {
	fields := make([]domain.Field, 0, len(d.Steps))
	for i, s := range d.Steps {
		value, ok := session.Answer(s.Field)
		if !ok {
			continue
		}
		fields = append(fields, domain.Field{Label: d.Label(i), Value: value})
	}
	return fields
}
