package survey

// Entry is one recorded navigation position. Intro visibility is
// deliberately not part of the entry: restoring from history always lands
// directly on the question.
type Entry struct {
	SectionIndex  int `json:"section_index"`
	QuestionIndex int `json:"question_index"`
}

// History models a browser-style back/forward stack. Pushing while not at
// the tip discards the forward entries, the way a browser does after
// navigating from a mid-stack position.
type History struct {
	entries []Entry
	index   int
}

// NewHistory returns an empty stack.
func NewHistory() *History {
	return &History{index: -1}
}

// Replace overwrites the current entry without growing the stack. Used for
// the base entry on first mount so the first native back exits the flow
// instead of looping inside it.
func (h *History) Replace(e Entry) {
	if h.index < 0 {
		h.entries = []Entry{e}
		h.index = 0
		return
	}
	h.entries[h.index] = e
}

// Push appends a new entry after the current position.
func (h *History) Push(e Entry) {
	h.entries = append(h.entries[:h.index+1], e)
	h.index = len(h.entries) - 1
}

// Go moves delta steps through the stack (negative is back) and returns the
// entry landed on. Moving past either end reports false and leaves the
// position unchanged.
func (h *History) Go(delta int) (Entry, bool) {
	target := h.index + delta
	if target < 0 || target >= len(h.entries) {
		return Entry{}, false
	}
	h.index = target
	return h.entries[h.index], true
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Navigator binds a session to a definition and a history stack, keeping
// the stack in sync with every programmatic transition.
type Navigator struct {
	def     *Definition
	Session *Session
	History *History
}

// NewNavigator hydrates a navigator and records the current position as the
// base history entry (replace, not push).
func NewNavigator(def *Definition, s *Session) *Navigator {
	if s == nil {
		s = NewSession()
	}
	s.Clamp(def)
	n := &Navigator{def: def, Session: s, History: NewHistory()}
	n.History.Replace(n.position())
	return n
}

func (n *Navigator) position() Entry {
	return Entry{SectionIndex: n.Session.SectionIndex, QuestionIndex: n.Session.QuestionIndex}
}

// Next advances and records the new position.
func (n *Navigator) Next() bool {
	if !n.Session.Next(n.def) {
		return false
	}
	n.History.Push(n.position())
	return true
}

// Back moves backwards and records the new position.
func (n *Navigator) Back() bool {
	if !n.Session.Back(n.def) {
		return false
	}
	n.History.Push(n.position())
	return true
}

// JumpToSection moves directly to a section and records the new position.
func (n *Navigator) JumpToSection(idx int) bool {
	if !n.Session.JumpToSection(n.def, idx) {
		return false
	}
	n.History.Push(n.position())
	return true
}

// Navigate handles a native back/forward movement: the position is restored
// from the history entry directly, bypassing the transition rules, and the
// intro screen is never shown.
func (n *Navigator) Navigate(delta int) bool {
	e, ok := n.History.Go(delta)
	if !ok {
		return false
	}
	n.Session.SectionIndex = e.SectionIndex
	n.Session.QuestionIndex = e.QuestionIndex
	n.Session.ShowSectionIntro = false
	n.Session.Clamp(n.def)
	return true
}
