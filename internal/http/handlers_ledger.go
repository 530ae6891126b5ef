package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ovenbook/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		writeErrorDiv(w, http.StatusUnprocessableEntity, "Invalid date")
		return
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeErrorDiv(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}

	e := core.Expense{
		Date:     date,
		Category: sanitizeInput(r.Form.Get("category")),
		Amount:   core.Money{Cents: cents},
		Comment:  sanitizeInput(r.Form.Get("comment")),
	}

	id, err := s.ledger.AddExpense(r.Context(), e)
	if err != nil {
		writeDomainError(w, r, err, "Expense create error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "expense:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Expense #` + strconv.FormatInt(id, 10) + ` saved: ` +
		template.HTMLEscapeString(e.Category) + ` ` + formatRupees(e.Amount.Cents) + `</div>`))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		writeDomainError(w, r, err, "Expense delete error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "expense:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Expense #` + strconv.FormatInt(id, 10) + ` deleted</div>`))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		writeErrorDiv(w, http.StatusUnprocessableEntity, "Invalid date")
		return
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeErrorDiv(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}
	method := core.PaymentMethod(sanitizeInput(r.Form.Get("method")))
	if method == "" {
		method = core.DefaultPaymentMethod
	}

	in := core.Income{
		Date:     date,
		Customer: sanitizeInput(r.Form.Get("customer")),
		Amount:   core.Money{Cents: cents},
		Method:   method,
		Comment:  sanitizeInput(r.Form.Get("comment")),
	}

	id, err := s.ledger.AddIncome(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err, "Income create error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "income:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Income #` + strconv.FormatInt(id, 10) + ` saved: ` +
		template.HTMLEscapeString(in.Customer) + ` ` + formatRupees(in.Amount.Cents) + `</div>`))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteIncome(r.Context(), id); err != nil {
		writeDomainError(w, r, err, "Income delete error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "income:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Income #` + strconv.FormatInt(id, 10) + ` deleted</div>`))
}

// handleExpensesTable renders the expense ledger partial.
func (s *Server) handleExpensesTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	expenses, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error loading expenses</div>`))
		return
	}

	type row struct {
		ID       int64
		Date     string
		Category string
		Amount   string
		Comment  string
	}
	data := struct {
		Rows []row
	}{}
	for _, e := range expenses {
		data.Rows = append(data.Rows, row{
			ID:       e.ID,
			Date:     e.Date.Display(),
			Category: e.Category,
			Amount:   formatRupees(e.Amount.Cents),
			Comment:  e.Comment,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "expenses_table.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "expenses_table.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering expenses</div>`))
	}
}

// handleIncomesTable renders the income ledger partial.
func (s *Server) handleIncomesTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	incomes, err := s.ledger.ListIncomes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List incomes error", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error loading incomes</div>`))
		return
	}

	type row struct {
		ID       int64
		Date     string
		Customer string
		Amount   string
		Method   string
		Comment  string
	}
	data := struct {
		Rows []row
	}{}
	for _, in := range incomes {
		data.Rows = append(data.Rows, row{
			ID:       in.ID,
			Date:     in.Date.Display(),
			Customer: in.Customer,
			Amount:   formatRupees(in.Amount.Cents),
			Method:   in.Method.String(),
			Comment:  in.Comment,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "incomes_table.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "incomes_table.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering incomes</div>`))
	}
}

// handleSummary renders the month-by-month totals partial.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	summary, found := s.summaryCache.Get("summary")
	if !found {
		var err error
		summary, err = s.ledger.MonthlySummary(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Monthly summary error", "error", err)
			_, _ = w.Write([]byte(`<div class="error">Error loading summary</div>`))
			return
		}
		s.summaryCache.Set("summary", summary)
	}

	type row struct {
		Month   string
		Expense string
		Income  string
		Net     string
		Saved   bool
	}
	data := struct {
		Rows []row
	}{}
	for _, m := range summary {
		data.Rows = append(data.Rows, row{
			Month:   core.MonthKey{Year: m.Year, Month: m.Month}.String(),
			Expense: formatRupees(m.TotalExpense.Cents),
			Income:  formatRupees(m.TotalIncome.Cents),
			Net:     formatRupees(m.NetSavings.Cents),
			Saved:   m.NetSavings.Cents >= 0,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "summary_table.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "summary_table.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering summary</div>`))
	}
}
