package api

import (
	"github.com/careerlens/careerlens/internal/services"
	"github.com/careerlens/careerlens/internal/survey"
)

// Store is the union of every persistence interface the handlers need.
// internal/db implements it on SQLite; the in-memory implementation in
// this package backs tests and credential-free development runs.
type Store interface {
	services.AccessStore
	services.AnswerStore
	services.ReportStore
	services.PurchaseStore
	services.AuthStore
	survey.Store

	GetSurveyDefinition(id string) (*survey.Definition, error)
	UpsertSurveyDefinition(def *survey.Definition) error
}

var _ Store = (*memoryStore)(nil)
