package survey

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSessionSnapshotRoundTrip(t *testing.T) {
	s := NewSession()
	s.SetResponse("q1", json.RawMessage(`5`))
	s.SetResponse("q2", json.RawMessage(`"remote work"`))
	s.SectionIndex = 1
	s.QuestionIndex = 2
	s.ShowSectionIntro = false
	s.markCompleted(0)
	s.SubmissionStatus = SubmissionFailed

	data, err := EncodeSession(s)
	if err != nil {
		t.Fatalf("EncodeSession: %v", err)
	}
	got, err := DecodeSession(data)
	if err != nil {
		t.Fatalf("DecodeSession: %v", err)
	}
	if got.SectionIndex != 1 || got.QuestionIndex != 2 || got.ShowSectionIntro {
		t.Fatalf("decoded position = (%d,%d,intro=%v)", got.SectionIndex, got.QuestionIndex, got.ShowSectionIntro)
	}
	if got.SubmissionStatus != SubmissionFailed {
		t.Fatalf("decoded status = %q, want failed", got.SubmissionStatus)
	}
	if string(got.Responses["q2"]) != `"remote work"` {
		t.Fatalf("decoded response q2 = %s", got.Responses["q2"])
	}
}

func TestHydrationWithoutChangesIsByteIdentical(t *testing.T) {
	s := NewSession()
	s.SetResponse("q1", json.RawMessage(`3`))
	s.Next(twoSectionDef())

	first, err := EncodeSession(s)
	if err != nil {
		t.Fatalf("EncodeSession: %v", err)
	}
	hydrated, err := DecodeSession(first)
	if err != nil {
		t.Fatalf("DecodeSession: %v", err)
	}
	second, err := EncodeSession(hydrated)
	if err != nil {
		t.Fatalf("EncodeSession after hydrate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("no-op hydration changed snapshot:\n first=%s\nsecond=%s", first, second)
	}
}

func TestMemoryStoreSaveLoadClear(t *testing.T) {
	st := NewMemoryStore()
	if got, err := st.LoadSession("u1", "career_v1"); err != nil || got != nil {
		t.Fatalf("LoadSession on empty store = %v, %v", got, err)
	}

	s := NewSession()
	s.SetResponse("q1", json.RawMessage(`1`))
	if err := st.SaveSession("u1", "career_v1", s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := st.LoadSession("u1", "career_v1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got == nil || string(got.Responses["q1"]) != `1` {
		t.Fatalf("loaded session = %+v", got)
	}

	// Snapshots are keyed per user and survey.
	if other, _ := st.LoadSession("u2", "career_v1"); other != nil {
		t.Fatalf("session leaked across users")
	}

	if err := st.ClearSession("u1", "career_v1"); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if got, _ := st.LoadSession("u1", "career_v1"); got != nil {
		t.Fatalf("session survived ClearSession")
	}
	// Clearing again is fine.
	if err := st.ClearSession("u1", "career_v1"); err != nil {
		t.Fatalf("second ClearSession: %v", err)
	}
}
