package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type fakeStore struct {
	expenses  []core.Expense
	summaries []core.CategorySummary
	records   []storage.QueryRecord

	insertErr  error
	executeErr error

	lastQuery string
	lastArgs  []any
	result    *storage.QueryResult

	summaryCalls int
}

func (f *fakeStore) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	e.ID = int64(len(f.expenses) + 1)
	f.expenses = append(f.expenses, e)
	return e.ID, nil
}

func (f *fakeStore) ListExpenses(ctx context.Context, dr core.DateRange) ([]core.Expense, error) {
	return f.expenses, nil
}

func (f *fakeStore) SummarizeByCategory(ctx context.Context, dr core.DateRange, category string) ([]core.CategorySummary, error) {
	f.summaryCalls++
	return f.summaries, nil
}

func (f *fakeStore) ExecuteRead(ctx context.Context, query string, args []any) (*storage.QueryResult, error) {
	f.lastQuery = query
	f.lastArgs = args
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &storage.QueryResult{Columns: []string{"total"}, Rows: [][]any{{42.5}}}, nil
}

func (f *fakeStore) RecordQuery(ctx context.Context, rec storage.QueryRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) RecentQueries(ctx context.Context, limit int) ([]storage.QueryRecord, error) {
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishExpenseCreated(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func newTestServer(t *testing.T, store ExpenseStore, pub EventPublisher) *Server {
	t.Helper()
	s := NewServer(":0", store, pub)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAddExpense(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestServer(t, store, pub)

	body := `{"date":"2025-11-03","amount":12.50,"category":"food","note":"lunch"}`
	rec := doRequest(s, http.MethodPost, "/add", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var resp expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != 1 || resp.Amount != 12.50 || resp.Category != "food" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(pub.published) != 1 || pub.published[0] != 1 {
		t.Errorf("published = %v, want [1]", pub.published)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"unknown field", `{"date":"2025-11-03","amount":1,"category":"food","extra":true}`, http.StatusBadRequest},
		{"bad date", `{"date":"03/11/2025","amount":1,"category":"food"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2025-11-03","amount":0,"category":"food"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2025-11-03","amount":-5,"category":"food"}`, http.StatusUnprocessableEntity},
		{"missing category", `{"date":"2025-11-03","amount":1,"category":"  "}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeStore{}, nil)
			rec := doRequest(s, http.MethodPost, "/add", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestAddExpensePublishFailureIsNonFatal(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("broker down")}
	s := newTestServer(t, &fakeStore{}, pub)

	body := `{"date":"2025-11-03","amount":5,"category":"bills"}`
	rec := doRequest(s, http.MethodPost, "/add", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestListExpenses(t *testing.T) {
	store := &fakeStore{expenses: []core.Expense{
		{ID: 1, Date: core.NewDate(2025, 11, 3), Amount: core.Money{Cents: 1250}, Category: "food"},
		{ID: 2, Date: core.NewDate(2025, 11, 4), Amount: core.Money{Cents: 900}, Category: "travel"},
	}}
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodGet, "/list?start_date=2025-11-01&end_date=2025-11-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
	}

	var resp struct {
		Expenses []expenseResponse `json:"expenses"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 2 || len(resp.Expenses) != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Expenses[0].Amount != 12.50 {
		t.Errorf("amount = %v, want 12.50", resp.Expenses[0].Amount)
	}
}

func TestListExpensesBadDate(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil)
	rec := doRequest(s, http.MethodGet, "/list?start_date=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSummaryUsesCache(t *testing.T) {
	store := &fakeStore{summaries: []core.CategorySummary{
		{Category: "food", Total: core.Money{Cents: 5000}, Count: 3},
	}}
	s := newTestServer(t, store, nil)

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodGet, "/summary?category=food", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	}
	if store.summaryCalls != 1 {
		t.Errorf("store calls = %d, want 1 (second hit should come from cache)", store.summaryCalls)
	}
}

func TestSummaryCacheClearedOnAdd(t *testing.T) {
	store := &fakeStore{summaries: []core.CategorySummary{
		{Category: "food", Total: core.Money{Cents: 5000}, Count: 3},
	}}
	s := newTestServer(t, store, nil)

	doRequest(s, http.MethodGet, "/summary", "")
	doRequest(s, http.MethodPost, "/add", `{"date":"2025-11-03","amount":5,"category":"food"}`)
	doRequest(s, http.MethodGet, "/summary", "")

	if store.summaryCalls != 2 {
		t.Errorf("store calls = %d, want 2 (add should invalidate cache)", store.summaryCalls)
	}
}

func TestQuery(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, store, nil)

	body := `{"question":"How much did I spend on food?","start_date":"2025-11-01","end_date":"2025-11-30"}`
	rec := doRequest(s, http.MethodPost, "/query", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Interpretation != "Showing total spending amount and number of expenses" {
		t.Errorf("interpretation = %q", resp.Interpretation)
	}
	if !strings.Contains(store.lastQuery, "SELECT") {
		t.Errorf("store did not receive a statement, got %q", store.lastQuery)
	}
	if len(store.lastArgs) != 3 {
		t.Errorf("args = %v, want date bounds plus category pattern", store.lastArgs)
	}
	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}
	if store.records[0].Shape != "total_overall" {
		t.Errorf("recorded shape = %q, want total_overall", store.records[0].Shape)
	}
}

func TestQueryTimeout(t *testing.T) {
	store := &fakeStore{executeErr: fmt.Errorf("run: %w", context.DeadlineExceeded)}
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodPost, "/query", `{"question":"list everything"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
	}
}

func TestQueryExecErrorIsGeneric(t *testing.T) {
	store := &fakeStore{executeErr: fmt.Errorf("sqlite: table vanished")}
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodPost, "/query", `{"question":"list everything"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "sqlite") {
		t.Errorf("response leaked datastore detail: %s", rec.Body)
	}
}

func TestExecute(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodPost, "/execute", `{"sql":"SELECT category, SUM(amount) FROM expenses GROUP BY category LIMIT 10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body)
	}
	if store.lastQuery == "" {
		t.Error("statement never reached the store")
	}
}

func TestExecuteRejections(t *testing.T) {
	tests := []struct {
		name       string
		sql        string
		wantReason string
	}{
		{"write statement", "DELETE FROM expenses", "not-a-read-statement"},
		{"blocked keyword", "SELECT * FROM expenses; DROP TABLE expenses", "contains-blocked-keyword"},
		{"no limit", "SELECT * FROM expenses", "missing-limit-clause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			s := newTestServer(t, store, nil)

			rec := doRequest(s, http.MethodPost, "/execute", `{"sql":`+fmt.Sprintf("%q", tt.sql)+`}`)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if resp.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", resp.Reason, tt.wantReason)
			}
			if store.lastQuery != "" {
				t.Error("rejected statement reached the store")
			}
		})
	}
}

func TestQueryHistory(t *testing.T) {
	store := &fakeStore{records: []storage.QueryRecord{
		{ID: 2, Question: "total food", Shape: "total_by_category"},
		{ID: 1, Question: "list all", Shape: "list_expenses"},
	}}
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodGet, "/query/history?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		History []storage.QueryRecord `json:"history"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 1 || resp.History[0].Question != "total food" {
		t.Errorf("unexpected history: %+v", resp)
	}
}

func TestQueryHistoryBadLimit(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil)
	for _, limit := range []string{"0", "101", "abc"} {
		rec := doRequest(s, http.MethodGet, "/query/history?limit="+limit, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/add"},
		{http.MethodPost, "/list"},
		{http.MethodGet, "/query"},
		{http.MethodPost, "/query/history"},
	}
	for _, tt := range tests {
		rec := doRequest(s, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil)

	if rec := doRequest(s, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
		t.Errorf("/ status = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/unknown status = %d, want 404", rec.Code)
	}
}
