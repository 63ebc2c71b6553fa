package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/nlq"
	"spendtrack/internal/storage"
)

type queryRequest struct {
	Question  string `json:"question"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type queryResponse struct {
	Question       string               `json:"question"`
	Interpretation string               `json:"interpretation"`
	Shape          string               `json:"shape"`
	SQL            string               `json:"sql"`
	Result         *storage.QueryResult `json:"result"`
}

// handleQuery answers a free-text question: translate it into a
// parameterized statement, run it, and record the exchange.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stmt := nlq.Translate(req.Question, core.DateRange{Start: start, End: end})

	slog.InfoContext(r.Context(), "Question translated",
		log.FieldComponent, log.ComponentNLQ,
		log.FieldQuestion, req.Question,
		log.FieldShape, stmt.Shape.String(),
		log.FieldSQL, stmt.SQL)

	began := time.Now()
	result, err := s.store.ExecuteRead(r.Context(), stmt.SQL, stmt.Args)
	if err != nil {
		writeExecError(w, r, err)
		return
	}

	// History is best effort; a write failure must not fail the query.
	rec := storage.QueryRecord{
		Question:   req.Question,
		Shape:      stmt.Shape.String(),
		SQL:        stmt.SQL,
		DurationMS: time.Since(began).Milliseconds(),
		AskedAt:    time.Now().UTC(),
	}
	if err := s.store.RecordQuery(r.Context(), rec); err != nil {
		slog.WarnContext(r.Context(), "Failed to record query", "error", err)
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Question:       req.Question,
		Interpretation: stmt.Interpretation,
		Shape:          stmt.Shape.String(),
		SQL:            stmt.SQL,
		Result:         result,
	})
}

type executeRequest struct {
	SQL string `json:"sql"`
}

// handleExecute runs caller-supplied SQL after it clears the read-only
// allow-list policy.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := nlq.Validate(req.SQL); err != nil {
		var verr *nlq.ValidationError
		if errors.As(err, &verr) {
			slog.WarnContext(r.Context(), "Statement rejected",
				log.FieldComponent, log.ComponentNLQ,
				log.FieldReason, string(verr.Reason))
			writeRejection(w, "statement rejected", string(verr.Reason))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.store.ExecuteRead(r.Context(), req.SQL, nil)
	if err != nil {
		writeExecError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sql":    req.SQL,
		"result": result,
	})
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	records, err := s.store.RecentQueries(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load query history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": records,
		"count":   len(records),
	})
}

// writeExecError maps read-statement failures: timeouts get a 504, anything
// else a generic 500 so datastore details never reach the client.
func writeExecError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		slog.WarnContext(r.Context(), "Query timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "query timed out")
		return
	}
	slog.ErrorContext(r.Context(), "Query execution failed", "error", err)
	writeError(w, http.StatusInternalServerError, "query execution failed")
}
