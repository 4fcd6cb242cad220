package plan

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/alnah/go-workout/internal/workout"
)

// parseText reads the line-oriented plan format.
func parseText(content string) (workout.Plan, error) {
	var p workout.Plan

	scanner := bufio.NewScanner(strings.NewReader(content))
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "#"); ok {
			directive, value, found := strings.Cut(rest, ":")
			if !found {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(strings.ToLower(directive)) {
			case "language":
				p.Language = value
			case "background", "background_url", "background_urls":
				if value != "" {
					p.Background = append(p.Background, value)
				}
			}
			continue
		}

		in, ok, err := parseLine(line)
		if err != nil {
			return workout.Plan{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, n, err)
		}
		if ok {
			p.Instructions = append(p.Instructions, in)
		}
	}
	if err := scanner.Err(); err != nil {
		return workout.Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return p, nil
}

// parseLine reads "text | seconds # comment" or "text # comment".
func parseLine(line string) (workout.Instruction, bool, error) {
	text, duration, hasDuration := strings.Cut(line, "|")
	if !hasDuration {
		text = stripComment(text)
		if text == "" {
			return workout.Instruction{}, false, nil
		}
		return workout.Instruction{Text: text, DurationSeconds: DefaultDurationSeconds}, true, nil
	}

	if strings.Contains(duration, "|") {
		return workout.Instruction{}, false, fmt.Errorf("invalid format, use 'Instruction text | duration'")
	}

	raw := stripComment(duration)
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return workout.Instruction{}, false, fmt.Errorf("invalid duration %q", raw)
	}
	return workout.Instruction{Text: strings.TrimSpace(text), DurationSeconds: seconds}, true, nil
}

// stripComment drops an inline "# ..." and surrounding space.
func stripComment(s string) string {
	s, _, _ = strings.Cut(s, "#")
	return strings.TrimSpace(s)
}
