package survey

import (
	"encoding/json"
	"testing"
)

func twoSectionDef() *Definition {
	return &Definition{
		ID:    "career_v1",
		Title: "Career Assessment",
		Sections: []Section{
			{ID: "s0", Title: "Work Style", Questions: []Question{
				{ID: "q1", Text: "Q1"},
				{ID: "q2", Text: "Q2"},
				{ID: "q3", Text: "Q3"},
			}},
			{ID: "s1", Title: "Values", Questions: []Question{
				{ID: "q4", Text: "Q4"},
				{ID: "q5", Text: "Q5"},
				{ID: "q6", Text: "Q6"},
			}},
		},
	}
}

func TestNextWalksTwoSections(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()

	// 2 sections x 3 questions: six Next calls from the start.
	wantCompleted := []int{0, 0, 1, 1, 1, 1}
	for i := 0; i < 6; i++ {
		moved := s.Next(def)
		if i < 5 && !moved {
			t.Fatalf("Next #%d did not move", i+1)
		}
		if i == 5 && moved {
			t.Fatalf("Next at last question of last section moved")
		}
		if got := len(s.CompletedSections); got != wantCompleted[i] {
			t.Fatalf("after Next #%d completed sections = %d, want %d", i+1, got, wantCompleted[i])
		}
	}
	// Section 1 never completes unless Next is called past its last question,
	// which is a no-op; only section 0 is marked.
	if !s.SectionCompleted(0) || s.SectionCompleted(1) {
		t.Fatalf("completed sections = %v, want exactly {0}", s.CompletedSections)
	}
	if s.SectionIndex != 1 || s.QuestionIndex != 2 {
		t.Fatalf("position = (%d,%d), want (1,2)", s.SectionIndex, s.QuestionIndex)
	}
	if !s.AtLastQuestion(def) {
		t.Fatalf("AtLastQuestion = false at final position")
	}
}

func TestNextAcrossBoundaryShowsIntro(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()
	for i := 0; i < 3; i++ {
		s.Next(def)
	}
	if s.SectionIndex != 1 || s.QuestionIndex != 0 {
		t.Fatalf("position = (%d,%d), want (1,0)", s.SectionIndex, s.QuestionIndex)
	}
	if !s.ShowSectionIntro {
		t.Fatalf("intro not shown after crossing a section boundary")
	}
}

func TestBackAcrossBoundarySkipsIntro(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()
	for i := 0; i < 3; i++ {
		s.Next(def)
	}
	if !s.Back(def) {
		t.Fatalf("Back at (1,0) did not move")
	}
	if s.SectionIndex != 0 || s.QuestionIndex != 2 {
		t.Fatalf("position = (%d,%d), want (0,2)", s.SectionIndex, s.QuestionIndex)
	}
	if s.ShowSectionIntro {
		t.Fatalf("Back showed a section intro")
	}
}

func TestBackAtOriginIsNoOp(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()
	if s.Back(def) {
		t.Fatalf("Back at (0,0) moved")
	}
	if s.SectionIndex != 0 || s.QuestionIndex != 0 {
		t.Fatalf("position = (%d,%d), want (0,0)", s.SectionIndex, s.QuestionIndex)
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()
	// Arbitrary mixed walk; position must always index a navigable question.
	moves := []string{"n", "n", "b", "n", "n", "n", "b", "b", "b", "b", "b", "n", "n", "n", "n", "n", "n", "n"}
	for i, m := range moves {
		switch m {
		case "n":
			s.Next(def)
		case "b":
			s.Back(def)
		}
		if _, ok := def.QuestionAt(s.SectionIndex, s.QuestionIndex); !ok {
			t.Fatalf("move %d (%s): position (%d,%d) out of bounds", i, m, s.SectionIndex, s.QuestionIndex)
		}
		if s.ShowSectionIntro && m == "b" {
			t.Fatalf("move %d: Back left an intro visible", i)
		}
	}
}

func TestFilteredQuestionsAreNeverVisited(t *testing.T) {
	def := &Definition{
		ID: "legacy",
		Sections: []Section{
			{ID: "s0", Questions: []Question{
				{ID: "lk", Type: QuestionTypeLicenseKey, Text: "enter key"},
				{ID: "q1", Text: "Q1"},
				{ID: "q2", Text: "Q2"},
			}},
		},
	}
	if got := def.QuestionCount(0); got != 2 {
		t.Fatalf("navigable count = %d, want 2", got)
	}
	s := NewSession()
	s.DismissIntro()
	seen := map[string]bool{}
	for {
		q, ok := def.QuestionAt(s.SectionIndex, s.QuestionIndex)
		if !ok {
			t.Fatalf("position (%d,%d) out of bounds", s.SectionIndex, s.QuestionIndex)
		}
		seen[q.ID] = true
		if !s.Next(def) {
			break
		}
	}
	if seen["lk"] {
		t.Fatalf("license_key question was visited")
	}
	if !seen["q1"] || !seen["q2"] {
		t.Fatalf("visited = %v, want q1 and q2", seen)
	}
}

func TestJumpToSection(t *testing.T) {
	def := twoSectionDef()
	s := NewSession()
	s.DismissIntro()
	if !s.JumpToSection(def, 1) {
		t.Fatalf("JumpToSection(1) failed")
	}
	if s.SectionIndex != 1 || s.QuestionIndex != 0 || !s.ShowSectionIntro {
		t.Fatalf("jump state = (%d,%d,intro=%v), want (1,0,intro=true)", s.SectionIndex, s.QuestionIndex, s.ShowSectionIntro)
	}
	if s.JumpToSection(def, 5) {
		t.Fatalf("JumpToSection(5) accepted an out-of-range index")
	}
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := NewSession()
	s.markCompleted(1)
	s.markCompleted(0)
	s.markCompleted(1)
	if len(s.CompletedSections) != 2 || s.CompletedSections[0] != 0 || s.CompletedSections[1] != 1 {
		t.Fatalf("completed sections = %v, want [0 1]", s.CompletedSections)
	}
}

func TestSetResponse(t *testing.T) {
	s := &Session{}
	s.SetResponse("q1", json.RawMessage(`"agree"`))
	if string(s.Responses["q1"]) != `"agree"` {
		t.Fatalf("response = %s, want \"agree\"", s.Responses["q1"])
	}
}
