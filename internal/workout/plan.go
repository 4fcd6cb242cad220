package workout

import (
	"fmt"
	"unicode/utf8"

	"github.com/alnah/go-workout/internal/lang"
)

// Validation limits.
const (
	MinDurationSeconds = 10
	MaxTextLength      = 256
	MaxTotalSeconds    = 4 * 3600
)

// Instruction is one spoken step of a workout.
type Instruction struct {
	Text            string `json:"text" yaml:"text"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
}

// Plan is a full workout request.
type Plan struct {
	Instructions []Instruction
	Language     string
	Background   []string
}

// TotalSeconds sums the instruction durations.
func (p Plan) TotalSeconds() int {
	total := 0
	for _, in := range p.Instructions {
		total += in.DurationSeconds
	}
	return total
}

// Validate checks the instructions and the language.
func (p Plan) Validate() error {
	if err := ValidateInstructions(p.Instructions); err != nil {
		return err
	}
	return lang.Validate(p.Language)
}

// ValidateInstructions rejects an empty list, a total above four hours,
// texts longer than MaxTextLength characters and durations below
// MinDurationSeconds. Errors wrap ErrInvalidPlan.
func ValidateInstructions(instructions []Instruction) error {
	if len(instructions) == 0 {
		return fmt.Errorf("no instructions provided: %w", ErrInvalidPlan)
	}

	total := 0
	for _, in := range instructions {
		total += in.DurationSeconds
	}
	if total > MaxTotalSeconds {
		return fmt.Errorf("Total workout duration of %dh %dm %ds exceeds maximum of 4 hours: %w",
			total/3600, total%3600/60, total%60, ErrInvalidPlan)
	}

	for _, in := range instructions {
		if n := utf8.RuneCountInString(in.Text); n > MaxTextLength {
			return fmt.Errorf("instruction text too long: %q is %d characters, maximum is %d: %w",
				preview(in.Text), n, MaxTextLength, ErrInvalidPlan)
		}
		if in.DurationSeconds < MinDurationSeconds {
			return fmt.Errorf("exercise duration too short: %q is %d seconds, minimum is %d: %w",
				in.Text, in.DurationSeconds, MinDurationSeconds, ErrInvalidPlan)
		}
	}
	return nil
}

// preview shortens long text for error messages.
func preview(s string) string {
	const n = 50
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
