package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"spendtrack/internal/core"
)

type addExpenseRequest struct {
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Note        string      `json:"note"`
}

type expenseResponse struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Note        string  `json:"note,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Note:        e.Note,
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "spendtrack",
		"status":  "ok",
	})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req addExpenseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := core.ParseDate(sanitizeInput(req.Date))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("date: %v", err))
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("amount: %v", err))
		return
	}

	expense := core.Expense{
		Date:        date,
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Subcategory: sanitizeInput(req.Subcategory),
		Note:        sanitizeInput(req.Note),
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.InsertExpense(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to insert expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}
	expense.ID = id

	// New rows change every summary; drop all cached entries.
	s.summaryCache.Clear()

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(r.Context(), id); err != nil {
			// Export is best effort here; the catch-up pass covers misses.
			slog.WarnContext(r.Context(), "Failed to publish expense created event",
				"expense_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	dr, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.store.ListExpenses(r.Context(), dr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": resp,
		"count":    len(resp),
	})
}

type summaryRow struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	dr, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := sanitizeInput(r.URL.Query().Get("category"))

	cacheKey := dr.Start.String() + "|" + dr.End.String() + "|" + category

	summaries, ok := s.summaryCache.Get(cacheKey)
	if !ok {
		summaries, err = s.store.SummarizeByCategory(r.Context(), dr, category)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to summarize expenses", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to summarize expenses")
			return
		}
		s.summaryCache.Set(cacheKey, summaries)
	}

	rows := make([]summaryRow, 0, len(summaries))
	var grand float64
	for _, cs := range summaries {
		rows = append(rows, summaryRow{
			Category: cs.Category,
			Total:    cs.Total.Float64(),
			Count:    cs.Count,
		})
		grand += cs.Total.Float64()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":     rows,
		"grand_total": grand,
	})
}
