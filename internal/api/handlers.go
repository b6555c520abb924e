package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

const maxBodyBytes = 1 << 16

type infractionJSON struct {
	SettledOn  *string `json:"settled_on"`
	Date       string  `json:"date"`
	Code       string  `json:"error_code"`
	Subject    string  `json:"student"`
	Reason     string  `json:"reason,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	Sheet      string  `json:"sheet,omitempty"`
	ID         int64   `json:"id"`
	Period     int     `json:"week"`
	AmountDue  int64   `json:"amount_due"`
	AmountPaid int64   `json:"amount_paid"`
	Override   bool    `json:"override"`
}

func toInfractionJSON(inf model.Infraction) infractionJSON {
	out := infractionJSON{
		ID:         inf.ID,
		Code:       inf.Code,
		Subject:    inf.Subject,
		Period:     inf.Period,
		Date:       inf.Date.Format(model.DateLayout),
		AmountDue:  inf.AmountDue,
		AmountPaid: inf.AmountPaid,
		Reason:     inf.Reason,
		Notes:      inf.Notes,
		Sheet:      inf.Sheet,
		Override:   inf.Override,
	}
	if inf.SettledOn != nil {
		s := inf.SettledOn.Format(model.DateLayout)
		out.SettledOn = &s
	}
	return out
}

type lineJSON struct {
	infractionJSON
	Due         int64 `json:"due"`
	Outstanding int64 `json:"outstanding"`
}

type balanceJSON struct {
	Subject     string     `json:"student"`
	Codes       []string   `json:"codes"`
	Lines       []lineJSON `json:"records"`
	Due         int64      `json:"due"`
	Paid        int64      `json:"paid"`
	Outstanding int64      `json:"outstanding"`
}

func toBalanceJSON(b accrual.Balance) balanceJSON {
	out := balanceJSON{
		Subject:     b.Subject,
		Codes:       b.Codes,
		Lines:       make([]lineJSON, 0, len(b.Lines)),
		Due:         b.Due,
		Paid:        b.Paid,
		Outstanding: b.Outstanding,
	}
	if out.Codes == nil {
		out.Codes = []string{}
	}
	for _, l := range b.Lines {
		out.Lines = append(out.Lines, lineJSON{
			infractionJSON: toInfractionJSON(l.Infraction),
			Due:            l.Due,
			Outstanding:    l.Outstanding,
		})
	}
	return out
}

func toBalancesJSON(bs []accrual.Balance) []balanceJSON {
	out := make([]balanceJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBalanceJSON(b))
	}
	return out
}

// handleAmount prices a prospective record. Any bad input prices at zero.
func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var amount int64

	date, err := time.Parse(model.DateLayout, q.Get("date"))
	if err == nil {
		if a, err := s.engine.Quote(r.Context(), q.Get("student"), date, q.Get("error_code")); err == nil {
			amount = a
		} else {
			s.logger.Debug("amount query priced at zero", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]int64{"amount": amount})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.GetCategories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	type categoryJSON struct {
		Code          string `json:"code"`
		Description   string `json:"description"`
		DefaultAmount int64  `json:"default_amount"`
		Escalates     bool   `json:"escalates"`
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{
			Code:          c.Code,
			Description:   c.Description,
			DefaultAmount: c.DefaultAmount,
			Escalates:     c.Escalates(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := engine.SummaryFilter{Subject: q.Get("student"), Status: q.Get("status")}
	if p := q.Get("week"); p != "" {
		period, err := strconv.Atoi(p)
		if err != nil || period < 0 {
			s.fail(w, r, common.Validationf("week must be a positive number"))
			return
		}
		filter.Period = period
	}

	balances, err := s.engine.Summary(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalancesJSON(balances))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := s.engine.Today()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse(model.DateLayout, d)
		if err != nil {
			s.fail(w, r, common.Validationf("date must be YYYY-MM-DD"))
			return
		}
		today = parsed
	}

	d, err := s.engine.Dashboard(r.Context(), today)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	type periodJSON struct {
		Period int `json:"week"`
		Count  int `json:"count"`
	}
	periods := make([]periodJSON, 0, len(d.Periods))
	for _, p := range d.Periods {
		periods = append(periods, periodJSON{Period: p.Period, Count: p.Count})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":         d.Today.Format(model.DateLayout),
		"current_week": d.CurrentPeriod,
		"roster_size":  d.RosterSize,
		"records":      d.Records,
		"due":          d.Due,
		"paid":         d.Paid,
		"outstanding":  d.Outstanding,
		"weeks":        periods,
		"current":      toBalancesJSON(d.Current),
	})
}

func subjectParam(r *http.Request) string {
	raw := chi.URLParam(r, "subject")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Balance(r.Context(), subjectParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceJSON(b))
}

type settleBody struct {
	AccountID int64 `json:"account_id" validate:"gt=0"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var body settleBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.engine.Settle(r.Context(), settlement.Request{Subject: subjectParam(r), AccountID: body.AccountID})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if out.NothingDue {
		writeJSON(w, http.StatusOK, map[string]bool{"nothing_due": true})
		return
	}

	resp := map[string]any{
		"total":   out.Total,
		"codes":   out.Codes,
		"settled": out.Settled,
		"message": out.Entry.Note,
		"ledger":  out.Entry.ID,
		"mirror":  out.Mirror.OK(),
	}
	writeJSON(w, http.StatusOK, resp)
}

type recordBody struct {
	Amount     *int64 `json:"amount" validate:"omitempty,min=0"`
	Subject    string `json:"student" validate:"notblank"`
	Code       string `json:"error_code" validate:"notblank"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason" validate:"max=500"`
	Notes      string `json:"notes" validate:"max=500"`
	RecordedBy int64  `json:"recorded_by" validate:"min=0"`
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var body recordBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	date, _ := time.Parse(model.DateLayout, body.Date)
	out, err := s.engine.RecordInfraction(r.Context(), engine.RecordRequest{
		Subject:    body.Subject,
		Code:       body.Code,
		Date:       date,
		Amount:     body.Amount,
		Reason:     body.Reason,
		Notes:      body.Notes,
		RecordedBy: body.RecordedBy,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"infraction": toInfractionJSON(out.Infraction),
		"mirror":     out.Mirror.OK(),
	})
}

// idParam reads a positive {id} path parameter.
func idParam(r *http.Request, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Validationf("invalid %s id %q", what, chi.URLParam(r, "id"))
	}
	return id, nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "infraction")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if _, err := s.engine.DeleteInfraction(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type complaintJSON struct {
	CreatedAt    string `json:"submitted_at"`
	Code         string `json:"error_code"`
	Subject      string `json:"student"`
	Email        string `json:"email"`
	Message      string `json:"message"`
	ID           int64  `json:"id"`
	InfractionID int64  `json:"violation_id"`
	AccountID    int64  `json:"account_id"`
	Resolved     bool   `json:"resolved"`
}

func toComplaintJSON(c model.Complaint) complaintJSON {
	return complaintJSON{
		ID:           c.ID,
		InfractionID: c.InfractionID,
		AccountID:    c.AccountID,
		Code:         c.Code,
		Subject:      c.Subject,
		Email:        c.Email,
		Message:      c.Message,
		Resolved:     c.Resolved,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type complaintBody struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	AccountID int64  `json:"account_id"`
}

func (s *Server) handleComplaint(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "infraction")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var body complaintBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := s.engine.FileComplaint(r.Context(), engine.ComplaintRequest{
		InfractionID: id,
		AccountID:    body.AccountID,
		Email:        body.Email,
		Message:      body.Message,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComplaintJSON(*c))
}

func (s *Server) handleComplaints(w http.ResponseWriter, r *http.Request) {
	open, _ := strconv.ParseBool(r.URL.Query().Get("open"))
	list, err := s.engine.Complaints(r.Context(), model.ComplaintFilter{OpenOnly: open})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]complaintJSON, 0, len(list))
	for _, c := range list {
		out = append(out, toComplaintJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"complaints": out})
}

func (s *Server) handleResolveComplaint(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "complaint")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.engine.ResolveComplaint(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoster(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	if s.roster != nil {
		names = s.roster.Names()
	}
	writeJSON(w, http.StatusOK, map[string]any{"names": names})
}

func (s *Server) handleRosterRefresh(w http.ResponseWriter, r *http.Request) {
	if s.roster == nil {
		writeJSON(w, http.StatusOK, map[string]int{"count": 0})
		return
	}
	if err := s.roster.Refresh(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": s.roster.Len()})
}

// decodeBody reads a JSON body into v and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.Validationf("invalid JSON body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return common.ValidateStruct(v)
}
