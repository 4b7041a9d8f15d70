package api

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/careerlens/careerlens/internal/models"
	"github.com/careerlens/careerlens/internal/survey"
)

var errDuplicateAnswer = errors.New("answer already recorded for this survey and access code")

// memoryStore keeps everything in process memory behind one mutex. It
// backs handler tests and lets the server run without a database file.
type memoryStore struct {
	mu sync.RWMutex

	accessCodes map[string]*models.AccessCode // by id
	codeIndex   map[string]string             // normalized code -> id
	answers     map[string]*models.Answer     // by id
	answerIndex map[string]string             // survey_id/access_code_id -> id
	reports     map[string]*models.Report
	sections    map[string][]*models.ReportSection // by report id
	users       map[string]*models.User
	emailIndex  map[string]string // lowercased email -> user id
	purchases   map[string]*models.Purchase
	purchaseIdx map[string]string // checkout session id -> purchase id
	definitions map[string]*survey.Definition
	sessions    map[string][]byte // user_id/survey_id -> snapshot
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		accessCodes: map[string]*models.AccessCode{},
		codeIndex:   map[string]string{},
		answers:     map[string]*models.Answer{},
		answerIndex: map[string]string{},
		reports:     map[string]*models.Report{},
		sections:    map[string][]*models.ReportSection{},
		users:       map[string]*models.User{},
		emailIndex:  map[string]string{},
		purchases:   map[string]*models.Purchase{},
		purchaseIdx: map[string]string{},
		definitions: map[string]*survey.Definition{},
		sessions:    map[string][]byte{},
	}
}

func answerKey(surveyID, accessCodeID string) string { return surveyID + "/" + accessCodeID }

func (m *memoryStore) GetAccessCodeByCode(code string) (*models.AccessCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codeIndex[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil
	}
	return cloneAccessCode(m.accessCodes[id]), nil
}

func (m *memoryStore) GetAccessCode(id string) (*models.AccessCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAccessCode(m.accessCodes[id]), nil
}

func (m *memoryStore) InsertAccessCode(c *models.AccessCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessCodes[c.ID] = cloneAccessCode(c)
	m.codeIndex[strings.ToUpper(c.Code)] = c.ID
	return nil
}

// ConsumeAccessCode burns one use if and only if uses remain. The guard
// and the increment happen under the same lock, matching the conditional
// UPDATE the SQLite store issues.
func (m *memoryStore) ConsumeAccessCode(id string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.accessCodes[id]
	if !ok || c.UsageCount >= c.MaxUsage {
		return false, nil
	}
	c.UsageCount++
	t := usedAt
	c.UsedAt = &t
	return true, nil
}

func (m *memoryStore) FindAnswer(surveyID, accessCodeID string) (*models.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.answerIndex[answerKey(surveyID, accessCodeID)]
	if !ok {
		return nil, nil
	}
	return cloneAnswer(m.answers[id]), nil
}

func (m *memoryStore) InsertAnswer(a *models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := answerKey(a.SurveyID, a.AccessCodeID)
	if _, exists := m.answerIndex[key]; exists {
		return errDuplicateAnswer
	}
	m.answers[a.ID] = cloneAnswer(a)
	m.answerIndex[key] = a.ID
	return nil
}

func (m *memoryStore) InsertReport(r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = cloneReport(r)
	return nil
}

func (m *memoryStore) GetReport(id string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneReport(m.reports[id]), nil
}

func (m *memoryStore) ListReportsByUser(userID string) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, cloneReport(r))
		}
	}
	return out, nil
}

func (m *memoryStore) TransitionReportStatus(id string, to models.ReportStatus, from []models.ReportStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			r.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) SetReportStatus(id string, to models.ReportStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	return true, nil
}

func (m *memoryStore) InsertReportSection(sec *models.ReportSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *sec
	m.sections[sec.ReportID] = append(m.sections[sec.ReportID], &s)
	return nil
}

func (m *memoryStore) ListReportSections(reportID string) ([]*models.ReportSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ReportSection
	for _, s := range m.sections[reportID] {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (m *memoryStore) DeleteReportSection(reportID, sectionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sections[reportID]
	for i, s := range list {
		if s.ID == sectionID {
			m.sections[reportID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) DeleteReportCascade(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return false, nil
	}
	delete(m.reports, id)
	delete(m.sections, id)
	return true, nil
}

func (m *memoryStore) GetUser(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.users[id]), nil
}

func (m *memoryStore) FindUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(m.users[id]), nil
}

func (m *memoryStore) InsertUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
	m.emailIndex[strings.ToLower(u.Email)] = u.ID
	return nil
}

func (m *memoryStore) InsertPurchase(p *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	m.purchases[p.ID] = &c
	m.purchaseIdx[p.SessionID] = p.ID
	return nil
}

func (m *memoryStore) GetPurchaseBySession(sessionID string) (*models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.purchaseIdx[sessionID]
	if !ok {
		return nil, nil
	}
	c := *m.purchases[id]
	return &c, nil
}

func (m *memoryStore) ListPurchasesByUser(userID string) ([]*models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memoryStore) GetSurveyDefinition(id string) (*survey.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.definitions[id], nil
}

func (m *memoryStore) UpsertSurveyDefinition(def *survey.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.ID] = def
	return nil
}

func (m *memoryStore) LoadSession(userID, surveyID string) (*survey.Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[userID+"/"+surveyID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return survey.DecodeSession(data)
}

func (m *memoryStore) SaveSession(userID, surveyID string, s *survey.Session) error {
	data, err := survey.EncodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[userID+"/"+surveyID] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) ClearSession(userID, surveyID string) error {
	m.mu.Lock()
	delete(m.sessions, userID+"/"+surveyID)
	m.mu.Unlock()
	return nil
}

func cloneAccessCode(c *models.AccessCode) *models.AccessCode {
	if c == nil {
		return nil
	}
	out := *c
	if c.UsedAt != nil {
		t := *c.UsedAt
		out.UsedAt = &t
	}
	return &out
}

func cloneAnswer(a *models.Answer) *models.Answer {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

func cloneReport(r *models.Report) *models.Report {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
