package survey

import "encoding/json"

// Question is a single prompt within a section. Legacy question types that
// are never shown to respondents (old license-key entry screens) are kept in
// stored definitions for backward compatibility but excluded from
// navigation.
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type,omitempty"`
	Text     string   `json:"text"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// QuestionTypeLicenseKey marks retired license-key entry questions.
const QuestionTypeLicenseKey = "license_key"

// Navigable reports whether the question participates in navigation.
func (q Question) Navigable() bool {
	return q.Type != QuestionTypeLicenseKey
}

// Section groups questions under an intro screen.
type Section struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Intro     string     `json:"intro,omitempty"`
	Questions []Question `json:"questions"`
}

// Navigable returns the section's questions with non-navigable ones
// filtered out. Index arithmetic in the session always operates on this
// filtered list.
func (s Section) Navigable() []Question {
	out := make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if q.Navigable() {
			out = append(out, q)
		}
	}
	return out
}

// Definition is a full survey tree.
type Definition struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Type     string    `json:"type,omitempty"`
	Sections []Section `json:"sections"`
}

// ParseDefinition decodes a stored definition blob.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// QuestionCount returns the number of navigable questions in section idx,
// or 0 when idx is out of range.
func (d *Definition) QuestionCount(idx int) int {
	if idx < 0 || idx >= len(d.Sections) {
		return 0
	}
	return len(d.Sections[idx].Navigable())
}

// QuestionAt returns the navigable question at (section, question), or
// false when either index is out of range.
func (d *Definition) QuestionAt(section, question int) (Question, bool) {
	if section < 0 || section >= len(d.Sections) {
		return Question{}, false
	}
	qs := d.Sections[section].Navigable()
	if question < 0 || question >= len(qs) {
		return Question{}, false
	}
	return qs[question], true
}
