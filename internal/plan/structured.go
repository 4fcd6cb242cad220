package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alnah/go-workout/internal/workout"
)

// document is the shared JSON/YAML layout.
type document struct {
	Instructions   *[]entry `json:"instructions" yaml:"instructions"`
	Language       *string  `json:"language" yaml:"language"`
	BackgroundURLs urlList  `json:"background_urls" yaml:"background_urls"`
}

// entry is an instruction written either as a bare string or as an object.
type entry struct {
	Text            *string `json:"text" yaml:"text"`
	DurationSeconds *int    `json:"duration_seconds" yaml:"duration_seconds"`
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Text = &s
		return nil
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return errors.New("must be a string or an object")
	}
	type plain entry
	return json.Unmarshal(data, (*plain)(e))
}

func (e *entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		e.Text = &s
		return nil
	case yaml.MappingNode:
		type plain entry
		return node.Decode((*plain)(e))
	default:
		return errors.New("must be a string or an object")
	}
}

// urlList accepts a single URL or a list of URLs.
type urlList []string

func (u *urlList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*u = urlList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("'background_urls' must be a string or an array of strings")
	}
	*u = many
	return nil
}

func (u *urlList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*u = urlList{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return errors.New("'background_urls' must be a string or an array of strings")
		}
		*u = many
		return nil
	default:
		return errors.New("'background_urls' must be a string or an array of strings")
	}
}

func parseJSON(data []byte) (workout.Plan, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return workout.Plan{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.plan()
}

func parseYAML(data []byte) (workout.Plan, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return workout.Plan{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.plan()
}

// plan converts a decoded document, applying defaults.
func (d document) plan() (workout.Plan, error) {
	if d.Instructions == nil {
		return workout.Plan{}, fmt.Errorf("%w: missing 'instructions' field", ErrMalformed)
	}

	p := workout.Plan{Background: []string(d.BackgroundURLs)}
	if d.Language != nil {
		p.Language = *d.Language
	}

	for i, e := range *d.Instructions {
		if e.Text == nil {
			return workout.Plan{}, fmt.Errorf("%w: instruction %d missing 'text' field", ErrMalformed, i)
		}
		duration := DefaultDurationSeconds
		if e.DurationSeconds != nil {
			duration = *e.DurationSeconds
		}
		p.Instructions = append(p.Instructions, workout.Instruction{Text: *e.Text, DurationSeconds: duration})
	}
	return p, nil
}
