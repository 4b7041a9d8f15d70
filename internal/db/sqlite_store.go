package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/careerlens/careerlens/internal/api"
	"github.com/careerlens/careerlens/internal/models"
	"github.com/careerlens/careerlens/internal/survey"
)

// SQLiteStore is the durable implementation of api.Store. All writes that
// carry a concurrency guard (access code consumption, report status
// transitions) are expressed as conditional UPDATEs so correctness does
// not depend on Go-side locking.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Open opens (or creates) the database file, applies pragmas, and runs
// migrations.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := RunMigrations(conn, ""); err != nil {
		conn.Close()
		return nil, err
	}
	return NewSQLiteStore(conn)
}

var _ api.Store = (*SQLiteStore)(nil)

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *SQLiteStore) GetAccessCodeByCode(code string) (*models.AccessCode, error) {
	return s.scanAccessCode(s.db.QueryRow(
		`SELECT id, code, survey_type, expires_at, usage_count, max_usage, used_at, created_at
		 FROM access_codes WHERE code = ?`, strings.ToUpper(strings.TrimSpace(code))))
}

func (s *SQLiteStore) GetAccessCode(id string) (*models.AccessCode, error) {
	return s.scanAccessCode(s.db.QueryRow(
		`SELECT id, code, survey_type, expires_at, usage_count, max_usage, used_at, created_at
		 FROM access_codes WHERE id = ?`, id))
}

func (s *SQLiteStore) scanAccessCode(row *sql.Row) (*models.AccessCode, error) {
	var c models.AccessCode
	var usedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Code, &c.SurveyType, &c.ExpiresAt, &c.UsageCount, &c.MaxUsage, &usedAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return &c, nil
}

func (s *SQLiteStore) InsertAccessCode(c *models.AccessCode) error {
	_, err := s.db.Exec(
		`INSERT INTO access_codes (id, code, survey_type, expires_at, usage_count, max_usage, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, strings.ToUpper(c.Code), c.SurveyType, c.ExpiresAt, c.UsageCount, c.MaxUsage,
		toNullTime(c.UsedAt), c.CreatedAt)
	return err
}

// ConsumeAccessCode increments usage only while uses remain. The WHERE
// clause is the atomicity guarantee: two racing calls on a code with one
// use left serialize in SQLite and the second matches zero rows.
func (s *SQLiteStore) ConsumeAccessCode(id string, usedAt time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE access_codes SET usage_count = usage_count + 1, used_at = ?
		 WHERE id = ? AND usage_count < max_usage`, usedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) FindAnswer(surveyID, accessCodeID string) (*models.Answer, error) {
	var a models.Answer
	var responses string
	err := s.db.QueryRow(
		`SELECT id, survey_id, access_code_id, user_id, responses, submitted_at
		 FROM answers WHERE survey_id = ? AND access_code_id = ?`,
		surveyID, accessCodeID).
		Scan(&a.ID, &a.SurveyID, &a.AccessCodeID, &a.UserID, &responses, &a.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Responses = json.RawMessage(responses)
	return &a, nil
}

func (s *SQLiteStore) InsertAnswer(a *models.Answer) error {
	_, err := s.db.Exec(
		`INSERT INTO answers (id, survey_id, access_code_id, user_id, responses, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.SurveyID, a.AccessCodeID, a.UserID, string(a.Responses), a.SubmittedAt)
	return err
}

func (s *SQLiteStore) InsertReport(r *models.Report) error {
	_, err := s.db.Exec(
		`INSERT INTO reports (id, user_id, access_code_id, survey_id, title, status, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.AccessCodeID, r.SurveyID, r.Title, string(r.Status),
		string(r.Payload), r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetReport(id string) (*models.Report, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, access_code_id, survey_id, title, status, payload, created_at, updated_at
		 FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

func scanReport(row *sql.Row) (*models.Report, error) {
	var r models.Report
	var status, payload string
	err := row.Scan(&r.ID, &r.UserID, &r.AccessCodeID, &r.SurveyID, &r.Title, &status, &payload, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Status = models.ReportStatus(status)
	if payload != "" {
		r.Payload = json.RawMessage(payload)
	}
	return &r, nil
}

func (s *SQLiteStore) ListReportsByUser(userID string) ([]*models.Report, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, access_code_id, survey_id, title, status, payload, created_at, updated_at
		 FROM reports WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Report
	for rows.Next() {
		var r models.Report
		var status, payload string
		if err := rows.Scan(&r.ID, &r.UserID, &r.AccessCodeID, &r.SurveyID, &r.Title, &status, &payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Status = models.ReportStatus(status)
		if payload != "" {
			r.Payload = json.RawMessage(payload)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// TransitionReportStatus applies the monotonic lifecycle guard in SQL: the
// row only changes when its current status is one of the allowed sources.
func (s *SQLiteStore) TransitionReportStatus(id string, to models.ReportStatus, from []models.ReportStatus, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	placeholders := strings.Repeat("?,", len(from))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(from)+3)
	args = append(args, string(to), at, id)
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := s.db.Exec(
		`UPDATE reports SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) SetReportStatus(id string, to models.ReportStatus, at time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE reports SET status = ?, updated_at = ? WHERE id = ?`, string(to), at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertReportSection(sec *models.ReportSection) error {
	_, err := s.db.Exec(
		`INSERT INTO report_sections (id, report_id, section_type, title, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sec.ID, sec.ReportID, sec.SectionType, sec.Title, sec.Content, sec.CreatedAt)
	return err
}

func (s *SQLiteStore) ListReportSections(reportID string) ([]*models.ReportSection, error) {
	rows, err := s.db.Query(
		`SELECT id, report_id, section_type, title, content, created_at
		 FROM report_sections WHERE report_id = ? ORDER BY created_at, id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.ReportSection
	for rows.Next() {
		var sec models.ReportSection
		if err := rows.Scan(&sec.ID, &sec.ReportID, &sec.SectionType, &sec.Title, &sec.Content, &sec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &sec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteReportSection(reportID, sectionID string) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM report_sections WHERE id = ? AND report_id = ?`, sectionID, reportID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) DeleteReportCascade(id string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM report_sections WHERE report_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.Exec(`DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, full_name, pass_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, full_name, pass_hash, created_at FROM users WHERE email = ?`,
		strings.TrimSpace(email)))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) InsertUser(u *models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, full_name, pass_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PassHash, u.CreatedAt)
	return err
}

func (s *SQLiteStore) InsertPurchase(p *models.Purchase) error {
	_, err := s.db.Exec(
		`INSERT INTO purchases (id, user_id, access_code_id, email, first_name, last_name, country, session_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.AccessCodeID, p.Email, p.FirstName, p.LastName, p.Country, p.SessionID, p.CreatedAt)
	return err
}

func (s *SQLiteStore) GetPurchaseBySession(sessionID string) (*models.Purchase, error) {
	var p models.Purchase
	err := s.db.QueryRow(
		`SELECT id, user_id, access_code_id, email, first_name, last_name, country, session_id, created_at
		 FROM purchases WHERE session_id = ?`, sessionID).
		Scan(&p.ID, &p.UserID, &p.AccessCodeID, &p.Email, &p.FirstName, &p.LastName, &p.Country, &p.SessionID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ListPurchasesByUser(userID string) ([]*models.Purchase, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, access_code_id, email, first_name, last_name, country, session_id, created_at
		 FROM purchases WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.AccessCodeID, &p.Email, &p.FirstName, &p.LastName, &p.Country, &p.SessionID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSurveyDefinition(id string) (*survey.Definition, error) {
	var blob string
	err := s.db.QueryRow(`SELECT definition FROM survey_definitions WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return survey.ParseDefinition([]byte(blob))
}

func (s *SQLiteStore) UpsertSurveyDefinition(def *survey.Definition) error {
	blob, err := json.Marshal(def)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO survey_definitions (id, definition, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		def.ID, string(blob), time.Now().UTC())
	return err
}

func (s *SQLiteStore) LoadSession(userID, surveyID string) (*survey.Session, error) {
	var snapshot string
	err := s.db.QueryRow(
		`SELECT snapshot FROM survey_sessions WHERE user_id = ? AND survey_id = ?`,
		userID, surveyID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return survey.DecodeSession([]byte(snapshot))
}

func (s *SQLiteStore) SaveSession(userID, surveyID string, sess *survey.Session) error {
	snapshot, err := survey.EncodeSession(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO survey_sessions (user_id, survey_id, snapshot, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, survey_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		userID, surveyID, string(snapshot), time.Now().UTC())
	return err
}

func (s *SQLiteStore) ClearSession(userID, surveyID string) error {
	_, err := s.db.Exec(
		`DELETE FROM survey_sessions WHERE user_id = ? AND survey_id = ?`, userID, surveyID)
	return err
}
