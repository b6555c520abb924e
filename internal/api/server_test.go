package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/notify"
	"github.com/Veraticus/the-fines-must-flow/internal/roster"
	"github.com/Veraticus/the-fines-must-flow/internal/testutil"
)

type testServer struct {
	handler http.Handler
	book    *mirror.MemoryWorkbook
	payer   *model.Account
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	payer := &model.Account{Username: "jane", DisplayName: "Jane's Parent", Subject: "Jane Doe"}
	require.NoError(t, db.Storage.CreateAccount(ctx, payer))

	book := mirror.NewCategoryWorkbook()
	book.SetRows(mirror.RosterSheet, [][]string{{"STT", "Họ và tên"}, {"1", "jane doe"}, {"2", "An Nguyen"}})
	names := roster.New(roster.WorkbookSource{Book: book}, nil)

	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2025, 10, 19, 20, 30, 0, 0, time.UTC) }
	eng := engine.New(db.Storage, mirror.NewSynchronizer(book, nil), notify.NewDispatcher(db.Storage, nil, cfg.Location), names, nil, cfg)

	srv := NewServer(eng, db.Storage, names, nil)
	srv.EnableMetrics()
	return &testServer{handler: srv.Handler(), book: book, payer: payer}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (ts *testServer) record(t *testing.T, student, code, date string) map[string]any {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/infractions",
		`{"student":"`+student+`","error_code":"`+code+`","date":"`+date+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["infraction"].(map[string]any)
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAmount(t *testing.T) {
	ts := setupServer(t)
	ts.record(t, "Jane Doe", "VP01", "2025-10-06")

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{"second late arrival", "student=Jane+Doe&date=2025-10-07&error_code=VP01", 20000},
		{"other subject", "student=An+Nguyen&date=2025-10-07&error_code=VP01", 10000},
		{"flat category", "student=Jane+Doe&date=2025-10-07&error_code=VP04", 10000},
		{"unknown code", "student=Jane+Doe&date=2025-10-07&error_code=VP99", 0},
		{"bad date", "student=Jane+Doe&date=07/10/2025&error_code=VP01", 0},
		{"missing student", "date=2025-10-07&error_code=VP01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/amount?"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["amount"])
		})
	}
}

func TestCategories(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cats []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	require.Len(t, cats, 6)
	assert.Equal(t, "VP01", cats[0]["code"])
	assert.Equal(t, true, cats[0]["escalates"])
	assert.Equal(t, false, cats[1]["escalates"])
}

func TestRecordInfraction(t *testing.T) {
	ts := setupServer(t)

	inf := ts.record(t, "jane doe", "VP06", "2025-10-06")
	assert.Equal(t, "Jane Doe", inf["student"])
	assert.Equal(t, float64(30000), inf["amount_due"])
	assert.Equal(t, float64(5), inf["week"])
	assert.Equal(t, "NGHI_HOC", inf["sheet"])
	assert.Len(t, ts.book.Sheet("NGHI_HOC"), 2)

	t.Run("validation errors name the fields", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/infractions", `{"student":" ","error_code":"VP01","date":"06/10/2025"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decode(t, w)["error"].(map[string]any)
		assert.Equal(t, "validation", errBody["type"])
		fields := errBody["fields"].(map[string]any)
		assert.Contains(t, fields, "student")
		assert.Contains(t, fields, "date")
	})

	t.Run("unknown code", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/infractions", `{"student":"Jane Doe","error_code":"VP99","date":"2025-10-06"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/infractions", `{"student":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("override", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/infractions", `{"student":"An Nguyen","error_code":"VP01","date":"2025-10-06","amount":5000}`)
		require.Equal(t, http.StatusCreated, w.Code)
		got := decode(t, w)["infraction"].(map[string]any)
		assert.Equal(t, float64(5000), got["amount_due"])
		assert.Equal(t, true, got["override"])
	})
}

func TestBalanceAndSettle(t *testing.T) {
	ts := setupServer(t)
	ts.record(t, "Jane Doe", "VP01", "2025-10-06")
	ts.record(t, "Jane Doe", "VP01", "2025-10-07")
	ts.record(t, "Jane Doe", "VP04", "2025-10-07")

	w := ts.do(t, http.MethodGet, "/api/subjects/jane%20doe/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	bal := decode(t, w)
	assert.Equal(t, "Jane Doe", bal["student"])
	assert.Equal(t, float64(40000), bal["outstanding"])
	assert.Len(t, bal["records"], 3)

	w = ts.do(t, http.MethodPost, "/api/subjects/Jane%20Doe/settle", `{"account_id":`+itoa(ts.payer.ID)+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, float64(40000), out["total"])
	assert.Equal(t, "Jane Doe 40.000 VP01, VP04", out["message"])
	assert.Equal(t, true, out["mirror"])

	w = ts.do(t, http.MethodPost, "/api/subjects/Jane%20Doe/settle", `{"account_id":`+itoa(ts.payer.ID)+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["nothing_due"])

	w = ts.do(t, http.MethodPost, "/api/subjects/Jane%20Doe/settle", `{"account_id":999}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/subjects/Jane%20Doe/settle", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteInfraction(t *testing.T) {
	ts := setupServer(t)
	inf := ts.record(t, "Jane Doe", "VP03", "2025-10-06")
	id := itoa(int64(inf["id"].(float64)))

	w := ts.do(t, http.MethodDelete, "/api/infractions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, ts.book.Sheet("DOI_CHO"), 1)

	w = ts.do(t, http.MethodDelete, "/api/infractions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/infractions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplaints(t *testing.T) {
	ts := setupServer(t)
	inf := ts.record(t, "Jane Doe", "VP01", "2025-10-06")
	id := itoa(int64(inf["id"].(float64)))

	w := ts.do(t, http.MethodPost, "/api/infractions/"+id+"/complaints",
		`{"email":"jane@example.com","message":"I was on time","account_id":`+itoa(ts.payer.ID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "VP01", created["error_code"])
	assert.Equal(t, "Jane Doe", created["student"])
	assert.Equal(t, false, created["resolved"])

	w = ts.do(t, http.MethodPost, "/api/infractions/"+id+"/complaints", `{"email":"","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"].(map[string]any)["fields"], "email")

	w = ts.do(t, http.MethodPost, "/api/infractions/"+id+"/complaints", `{"email":"jane@example.com","message":" "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/infractions/9999/complaints", `{"email":"jane@example.com","message":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/complaints?open=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["complaints"], 1)

	complaintID := itoa(int64(created["id"].(float64)))
	w = ts.do(t, http.MethodPost, "/api/complaints/"+complaintID+"/resolve", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/complaints?open=true", "")
	assert.Empty(t, decode(t, w)["complaints"])

	w = ts.do(t, http.MethodDelete, "/api/infractions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/complaints", "")
	assert.Empty(t, decode(t, w)["complaints"], "deleting the record drops its complaints")
}

func TestSummaryAndDashboard(t *testing.T) {
	ts := setupServer(t)
	ts.record(t, "Jane Doe", "VP01", "2025-10-06")
	ts.record(t, "An Nguyen", "VP04", "2025-10-13")

	w := ts.do(t, http.MethodGet, "/api/summary?status=unpaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	var balances []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balances))
	assert.Len(t, balances, 2)

	w = ts.do(t, http.MethodGet, "/api/summary?status=late", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/summary?week=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/dashboard?date=2025-10-14", "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode(t, w)
	assert.Equal(t, float64(6), d["current_week"])
	assert.Equal(t, float64(35), d["roster_size"])
	assert.Equal(t, float64(20000), d["outstanding"])
	assert.Len(t, d["current"], 1)
}

func TestRoster(t *testing.T) {
	ts := setupServer(t)

	w := ts.do(t, http.MethodGet, "/api/roster", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["names"])

	w = ts.do(t, http.MethodPost, "/api/roster/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = ts.do(t, http.MethodGet, "/api/roster", "")
	assert.Equal(t, []any{"An Nguyen", "Jane Doe"}, decode(t, w)["names"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t)
	ts.record(t, "Jane Doe", "VP01", "2025-10-06")

	w := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fines_infractions_recorded_total")
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
