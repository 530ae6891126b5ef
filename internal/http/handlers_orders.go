package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ovenbook/internal/core"
	"ovenbook/internal/services"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	params, msg := parseOrderForm(r)
	if msg != "" {
		writeErrorDiv(w, http.StatusUnprocessableEntity, msg)
		return
	}

	o, err := s.orders.CreateOrder(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err, "Order create error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "order:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Order #` + strconv.FormatInt(o.ID, 10) + ` saved: ` +
		template.HTMLEscapeString(o.Item) + ` for ` + template.HTMLEscapeString(o.Customer) +
		`, pending ` + formatRupees(o.PendingBalance.Cents) + `</div>`))
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	params, msg := parseOrderForm(r)
	if msg != "" {
		writeErrorDiv(w, http.StatusUnprocessableEntity, msg)
		return
	}

	o, err := s.orders.UpdateOrder(r.Context(), id, params)
	if err != nil {
		writeDomainError(w, r, err, "Order update error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "order:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Order #` + strconv.FormatInt(o.ID, 10) +
		` updated, pending ` + formatRupees(o.PendingBalance.Cents) + `</div>`))
}

func (s *Server) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.orders.MarkDelivered(r.Context(), id); err != nil {
		writeDomainError(w, r, err, "Order deliver error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "order:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Order #` + strconv.FormatInt(id, 10) + ` marked delivered</div>`))
}

func (s *Server) handleSettleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	method := core.PaymentMethod(sanitizeInput(r.Form.Get("method")))
	in, err := s.orders.SettleOrder(r.Context(), id, method)
	if err != nil {
		writeDomainError(w, r, err, "Order settle error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "order:changed, income:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Order #` + strconv.FormatInt(id, 10) + ` settled: ` +
		formatRupees(in.Amount.Cents) + ` from ` + template.HTMLEscapeString(in.Customer) +
		` via ` + template.HTMLEscapeString(in.Method.String()) + `</div>`))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.orders.CancelOrder(r.Context(), id); err != nil {
		writeDomainError(w, r, err, "Order cancel error")
		return
	}

	s.purgeCaches()
	w.Header().Set("HX-Trigger", "order:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Order #` + strconv.FormatInt(id, 10) + ` cancelled</div>`))
}

// handleOrdersTable renders the open orders partial.
func (s *Server) handleOrdersTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	orders, found := s.ordersCache.Get("orders")
	if !found {
		var err error
		orders, err = s.orders.ListOrders(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List orders error", "error", err)
			_, _ = w.Write([]byte(`<div class="error">Error loading orders</div>`))
			return
		}
		s.ordersCache.Set("orders", orders)
	}

	type row struct {
		ID           int64
		DeliveryDate string
		Customer     string
		Item         string
		Price        string
		Advance      string
		Pending      string
		Description  string
		Delivered    bool
	}
	data := struct {
		Rows []row
	}{}
	for _, o := range orders {
		data.Rows = append(data.Rows, row{
			ID:           o.ID,
			DeliveryDate: o.DeliveryDate.Display(),
			Customer:     o.Customer,
			Item:         o.Item,
			Price:        formatRupees(o.Price.Cents),
			Advance:      formatRupees(o.Advance.Cents),
			Pending:      formatRupees(o.PendingBalance.Cents),
			Description:  o.Description,
			Delivered:    o.Delivered,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "orders_table.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "orders_table.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering orders</div>`))
	}
}

// parseOrderForm reads order fields from the form. The second return value is
// a user-facing message, empty on success.
func parseOrderForm(r *http.Request) (services.OrderParams, string) {
	date, err := core.ParseDate(r.Form.Get("delivery_date"))
	if err != nil {
		return services.OrderParams{}, "Invalid delivery date"
	}
	priceCents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("price")))
	if err != nil {
		return services.OrderParams{}, "Invalid price"
	}
	advanceStr := strings.TrimSpace(r.Form.Get("advance"))
	var advanceCents int64
	if advanceStr != "" {
		advanceCents, err = core.ParseDecimalToCents(advanceStr)
		if err != nil {
			return services.OrderParams{}, "Invalid advance"
		}
	}

	return services.OrderParams{
		DeliveryDate: date,
		Customer:     sanitizeInput(r.Form.Get("customer")),
		Item:         sanitizeInput(r.Form.Get("item")),
		Price:        core.Money{Cents: priceCents},
		Advance:      core.Money{Cents: advanceCents},
		Description:  sanitizeInput(r.Form.Get("description")),
	}, ""
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeErrorDiv(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func writeErrorDiv(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	slog.ErrorContext(r.Context(), logMsg, "error", err)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeErrorDiv(w, http.StatusNotFound, "Not found")
	case errors.Is(err, core.ErrAlreadyDelivered):
		writeErrorDiv(w, http.StatusConflict, "Order is already delivered")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativePrice),
		errors.Is(err, core.ErrNegativeAdvance),
		errors.Is(err, core.ErrEmptyCustomer),
		errors.Is(err, core.ErrEmptyItem),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidPaymentMethod),
		errors.Is(err, core.ErrUnparsableDate):
		writeErrorDiv(w, http.StatusUnprocessableEntity, "Invalid data: "+err.Error())
	default:
		writeErrorDiv(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
