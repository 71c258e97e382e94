package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/engage/internal/domain/dedupe"
	"github.com/okian/engage/internal/domain/model"
)

const (
	maxScoresPerRequest = 1000
	maxIdempotencyKey   = 128
)

// IdempotencyKeyHeader lets a client retry a batch without storing it twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// ScoresDependencies defines the interface for recording scores.
type ScoresDependencies interface {
	dedupe.Deduper
	RecordScores(ctx context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error)
}

// ScoresHandler handles score feed requests.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// scoreRequest is one score record in the POST /scores body.
type scoreRequest struct {
	ClientID int64    `json:"client_id"`
	MetricID int64    `json:"metric_id"`
	Value    *float64 `json:"value"`
	TakenAt  string   `json:"taken_at"`
	Note     string   `json:"note"`
	Locked   bool     `json:"locked"`
	SheetID  string   `json:"sheet_id"`
}

func (s scoreRequest) validate() error {
	switch {
	case s.ClientID <= 0:
		return errors.New("missing client_id")
	case s.MetricID <= 0:
		return errors.New("missing metric_id")
	case s.Value == nil:
		return errors.New("missing value")
	case math.IsNaN(*s.Value) || math.IsInf(*s.Value, 0):
		return errors.New("value must be finite")
	case strings.TrimSpace(s.TakenAt) == "":
		return errors.New("missing taken_at")
	}
	if _, err := time.Parse(time.RFC3339, s.TakenAt); err != nil {
		return errors.New("invalid taken_at; must be RFC3339")
	}
	return nil
}

func (s scoreRequest) record() model.ScoreRecord {
	at, _ := time.Parse(time.RFC3339, s.TakenAt)
	return model.ScoreRecord{
		ClientID: s.ClientID,
		MetricID: s.MetricID,
		Value:    *s.Value,
		TakenAt:  at,
		Note:     s.Note,
		Locked:   s.Locked,
		SheetID:  strings.TrimSpace(s.SheetID),
	}
}

type scoresRequest struct {
	Records []scoreRequest `json:"records"`
}

type scoresResponse struct {
	Accepted  int                 `json:"accepted"`
	Duplicate bool                `json:"duplicate"`
	Records   []model.ScoreRecord `json:"records"`
}

// HandlePostScores handles POST /scores requests. The whole batch is
// rejected when any record is invalid. A batch replayed with the same
// Idempotency-Key is acknowledged without being stored again.
func (h *ScoresHandler) HandlePostScores(w http.ResponseWriter, r *http.Request) {
	var req scoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if len(req.Records) == 0 || len(req.Records) > maxScoresPerRequest {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: between 1 and %d records required", ErrBadRequest, maxScoresPerRequest))
		return
	}

	records := make([]model.ScoreRecord, 0, len(req.Records))
	for i, s := range req.Records {
		if err := s.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: records[%d]: %w", ErrBadRequest, i, err))
			return
		}
		records = append(records, s.record())
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKey {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: %s longer than %d", ErrBadRequest, IdempotencyKeyHeader, maxIdempotencyKey))
		return
	}
	if key != "" && h.deps.SeenAndRecord(r.Context(), key) {
		writeJSON(w, http.StatusOK, scoresResponse{Duplicate: true, Records: []model.ScoreRecord{}})
		return
	}

	stored, err := h.deps.RecordScores(r.Context(), records...)
	if err != nil {
		if key != "" {
			h.deps.Unrecord(r.Context(), key)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scoresResponse{Accepted: len(stored), Records: stored})
}
