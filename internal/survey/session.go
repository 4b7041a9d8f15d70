package survey

import (
	"encoding/json"
	"sort"
)

// SubmissionStatus is the user-visible state of the final submission.
type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionFailed     SubmissionStatus = "failed"
)

// Session is the per-survey progress snapshot: accumulated responses plus
// the navigation position. It is persisted after every change and hydrated
// on revisit, so all fields round-trip through JSON.
type Session struct {
	Responses         map[string]json.RawMessage `json:"responses"`
	SectionIndex      int                        `json:"current_section_index"`
	QuestionIndex     int                        `json:"current_question_index"`
	ShowSectionIntro  bool                       `json:"show_section_intro"`
	CompletedSections []int                      `json:"completed_sections"`
	SubmissionStatus  SubmissionStatus           `json:"submission_status"`
}

// NewSession returns the default state for a first visit: first section,
// first question, intro shown.
func NewSession() *Session {
	return &Session{
		Responses:         map[string]json.RawMessage{},
		ShowSectionIntro:  true,
		CompletedSections: []int{},
		SubmissionStatus:  SubmissionIdle,
	}
}

// SetResponse records an answer for a question id.
func (s *Session) SetResponse(questionID string, value json.RawMessage) {
	if s.Responses == nil {
		s.Responses = map[string]json.RawMessage{}
	}
	s.Responses[questionID] = value
}

// markCompleted adds idx to the completed-sections set, keeping the slice
// sorted and duplicate free.
func (s *Session) markCompleted(idx int) {
	for _, v := range s.CompletedSections {
		if v == idx {
			return
		}
	}
	s.CompletedSections = append(s.CompletedSections, idx)
	sort.Ints(s.CompletedSections)
}

// SectionCompleted reports whether idx has been marked complete.
func (s *Session) SectionCompleted(idx int) bool {
	for _, v := range s.CompletedSections {
		if v == idx {
			return true
		}
	}
	return false
}

// DismissIntro hides the current section's intro screen. Pressing
// "continue" on an intro is not a navigation step and does not move the
// question pointer.
func (s *Session) DismissIntro() {
	s.ShowSectionIntro = false
}

// Next advances one navigable question. Crossing a section boundary marks
// the finished section complete and lands on the next section's intro
// screen at question 0. At the last question of the last section it does
// nothing: submission is a separate explicit action.
func (s *Session) Next(def *Definition) bool {
	count := def.QuestionCount(s.SectionIndex)
	if s.QuestionIndex < count-1 {
		s.QuestionIndex++
		s.ShowSectionIntro = false
		return true
	}
	if s.SectionIndex < len(def.Sections)-1 {
		s.markCompleted(s.SectionIndex)
		s.SectionIndex++
		s.QuestionIndex = 0
		s.ShowSectionIntro = true
		return true
	}
	return false
}

// Back moves one navigable question backwards. Crossing a section boundary
// lands on the previous section's last question with the intro suppressed;
// back-navigation never shows an intro screen. At the very first question
// of the first section it does nothing; the caller navigates away instead.
func (s *Session) Back(def *Definition) bool {
	if s.QuestionIndex > 0 {
		s.QuestionIndex--
		s.ShowSectionIntro = false
		return true
	}
	if s.SectionIndex > 0 {
		s.SectionIndex--
		s.QuestionIndex = def.QuestionCount(s.SectionIndex) - 1
		if s.QuestionIndex < 0 {
			s.QuestionIndex = 0
		}
		s.ShowSectionIntro = false
		return true
	}
	return false
}

// JumpToSection moves directly to the start of a section, intro shown.
func (s *Session) JumpToSection(def *Definition, idx int) bool {
	if idx < 0 || idx >= len(def.Sections) {
		return false
	}
	s.SectionIndex = idx
	s.QuestionIndex = 0
	s.ShowSectionIntro = true
	return true
}

// AtLastQuestion reports whether the position is the last navigable
// question of the last section.
func (s *Session) AtLastQuestion(def *Definition) bool {
	if s.ShowSectionIntro {
		return false
	}
	if s.SectionIndex != len(def.Sections)-1 {
		return false
	}
	return s.QuestionIndex == def.QuestionCount(s.SectionIndex)-1
}

// Clamp forces the position back inside the definition's bounds. Used after
// hydrating a snapshot against a definition that may have changed.
func (s *Session) Clamp(def *Definition) {
	if len(def.Sections) == 0 {
		s.SectionIndex, s.QuestionIndex = 0, 0
		return
	}
	if s.SectionIndex < 0 {
		s.SectionIndex = 0
	}
	if s.SectionIndex >= len(def.Sections) {
		s.SectionIndex = len(def.Sections) - 1
	}
	count := def.QuestionCount(s.SectionIndex)
	if s.QuestionIndex < 0 {
		s.QuestionIndex = 0
	}
	if count > 0 && s.QuestionIndex >= count {
		s.QuestionIndex = count - 1
	}
}
