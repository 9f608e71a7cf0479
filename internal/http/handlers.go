package http

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"moneyplanner/internal/core"
	applog "moneyplanner/internal/log"
)

// writeFailure answers a failed operation. Validation failures become 422 with
// their kind; anything else is a 500.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	if kind, ok := core.ErrorKind(err); ok {
		sl.LogRejected(r.Context(), op, err)
		_ = ValidationError(kind).Write(w)
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_ = ErrorResponse(http.StatusRequestEntityTooLarge, "body-too-large").Write(w)
		return
	}
	sl.LogError(r.Context(), "Request failed", err, op, nil)
	_ = InternalError().Write(w)
}

// parseBody reads and parses the request body, answering 400 on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = ErrorResponse(http.StatusRequestEntityTooLarge, "body-too-large").Write(w)
			return nil, false
		}
		_ = BadRequestError("malformed-body").Write(w)
		return nil, false
	}
	return p, true
}

func (s *Server) writeState(w http.ResponseWriter, status int) {
	state, currency := s.planner.Snapshot()
	_ = NewJSONResponse().Status(status).Body(newStateResponse(state, currency)).Write(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	source := p.Get("source")
	if source == "" {
		source = p.Get("description")
	}

	tx, err := s.planner.RecordIncome(r.Context(), p.Get("amount"), source)
	if err != nil {
		writeFailure(w, r, applog.OpCreate, err)
		return
	}
	s.writeTransaction(w, r, tx)
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}

	tx, err := s.planner.RecordExpense(r.Context(), p.Get("amount"), p.Get("category"))
	if err != nil {
		writeFailure(w, r, applog.OpCreate, err)
		return
	}
	s.writeTransaction(w, r, tx)
}

func (s *Server) writeTransaction(w http.ResponseWriter, r *http.Request, tx core.Transaction) {
	state, currency := s.planner.Snapshot()
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionRecorded(r.Context(), tx.ID, string(tx.Kind), tx.Amount.String(), string(tx.Category))

	_ = NewJSONResponse().
		Status(http.StatusCreated).
		Body(struct {
			Transaction transactionResponse `json:"transaction"`
			State       stateResponse       `json:"state"`
		}{
			Transaction: newTransactionResponse(tx, currency),
			State:       newStateResponse(state, currency),
		}).
		Write(w)
}

func (s *Server) handleSetGoals(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.planner.SetGoals(r.Context(), p.Get("savingsGoal"), p.Get("budgetLimit")); err != nil {
		writeFailure(w, r, applog.OpUpdate, err)
		return
	}
	s.writeState(w, http.StatusOK)
}

// handleReset is the confirmation boundary: the body must carry confirm=true.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if !p.GetBool("confirm") {
		_ = BadRequestError("confirmation-required").Write(w)
		return
	}
	if err := s.planner.Reset(r.Context()); err != nil {
		writeFailure(w, r, applog.OpDelete, err)
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	c, err := s.planner.SetCurrency(r.Context(), p.Get("currency"))
	if err != nil {
		writeFailure(w, r, applog.OpUpdate, err)
		return
	}
	_ = NewJSONResponse().Body(map[string]string{
		"currency": string(c),
		"symbol":   c.Symbol(),
	}).Write(w)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	_ = NewJSONResponse().Body(map[string]progressResponse{
		"budget":  newProgressResponse(s.planner.BudgetProgress()),
		"savings": newProgressResponse(s.planner.SavingsProgress()),
	}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	_, currency := s.planner.Snapshot()
	shares := s.planner.CategoryBreakdown()
	out := make([]shareResponse, 0, len(shares))
	for _, sh := range shares {
		out = append(out, newShareResponse(sh, currency))
	}
	_ = NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	_, currency := s.planner.Snapshot()
	txs := s.planner.RecentTransactions(parseLimit(r.URL.Query(), s.recentLimit))
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionResponse(tx, currency))
	}
	_ = NewJSONResponse().Body(out).Write(w)
}

func (s *Server) exportName(ext string) string {
	return "money-planner-" + s.now().UTC().Format("2006-01-02") + "." + ext
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.planner.ExportJSON()
	if err != nil {
		writeFailure(w, r, applog.OpExport, err)
		return
	}
	_ = NewJSONResponse().
		Raw(data, "application/json; charset=utf-8").
		Attachment(s.exportName("json")).
		Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.planner.ExportCSV()
	if err != nil {
		writeFailure(w, r, applog.OpExport, err)
		return
	}
	_ = NewJSONResponse().
		Raw([]byte(out), "text/csv; charset=utf-8").
		Attachment(s.exportName("csv")).
		Write(w)
}

func (s *Server) handleExportTSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.planner.ExportTabSeparated()
	if err != nil {
		writeFailure(w, r, applog.OpExport, err)
		return
	}
	_ = NewJSONResponse().
		Raw([]byte(out), "text/tab-separated-values; charset=utf-8").
		Write(w)
}

// handleImport accepts the document as the raw body or as the "file" field
// of a multipart upload.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var data []byte
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			_ = BadRequestError("missing-file").Write(w)
			return
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			writeFailure(w, r, applog.OpImport, err)
			return
		}
	} else {
		p := NewRequestBodyParser(w, r)
		if p.err != nil {
			writeFailure(w, r, applog.OpImport, p.err)
			return
		}
		data = p.GetRaw()
	}

	if err := s.planner.Import(r.Context(), data); err != nil {
		writeFailure(w, r, applog.OpImport, err)
		return
	}
	s.writeState(w, http.StatusOK)
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := core.ExpenseCategories()
	out := make([]map[string]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, map[string]string{
			"id":    string(c),
			"label": c.Label(),
			"glyph": c.Glyph(),
		})
	}
	_ = NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	_, active := s.planner.Snapshot()
	list := core.Currencies()
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		out = append(out, map[string]any{
			"code":   string(c),
			"symbol": c.Symbol(),
			"active": c == active,
		})
	}
	_ = NewJSONResponse().Body(out).Write(w)
}
