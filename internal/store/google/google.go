// Package google implements the store contract on top of a Google
// Spreadsheet with one tab per ledger. Row ids live in column A because the
// Sheets API has no native row identity.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"ovenbook/internal/core"
	"ovenbook/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	incomesSheet  string
	ordersSheet   string

	// numeric sheet ids resolved lazily, keyed by tab title
	sheetIDs map[string]int64
}

// Ensure interface conformance
var (
	_ store.ExpenseStore = (*Client)(nil)
	_ store.IncomeStore  = (*Client)(nil)
	_ store.OrderStore   = (*Client)(nil)
)

// Config names the spreadsheet and its tabs. Callers fill it from the
// application config; empty tab names fall back to the defaults.
type Config struct {
	SpreadsheetID string
	ExpensesSheet string
	IncomesSheet  string
	OrdersSheet   string
}

// withDefaults trims the fields and fills in the default tab names.
func (c Config) withDefaults() Config {
	c.SpreadsheetID = strings.TrimSpace(c.SpreadsheetID)
	c.ExpensesSheet = strings.TrimSpace(c.ExpensesSheet)
	if c.ExpensesSheet == "" {
		c.ExpensesSheet = "Expenses"
	}
	c.IncomesSheet = strings.TrimSpace(c.IncomesSheet)
	if c.IncomesSheet == "" {
		c.IncomesSheet = "Incomes"
	}
	c.OrdersSheet = strings.TrimSpace(c.OrdersSheet)
	if c.OrdersSheet == "" {
		c.OrdersSheet = "Orders"
	}
	return c
}

// New creates a Sheets client for the given spreadsheet. Service-account
// credentials are read from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		expensesSheet: cfg.ExpensesSheet,
		incomesSheet:  cfg.IncomesSheet,
		ordersSheet:   cfg.OrdersSheet,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return service, nil
}

// Expense tab layout: A=id, B=date, C=category, D=amount, E=comment.
// Income tab layout: A=id, B=date, C=customer, D=amount, E=method, F=comment.
// Order tab layout: A=id, B=delivery date, C=customer, D=item, E=price,
// F=advance, G=pending, H=description, I=delivered.
// Row 1 is a header on every tab; data starts at row 2.

func (c *Client) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	rows, err := c.readRows(ctx, c.expensesSheet)
	if err != nil {
		return 0, err
	}
	id := nextID(rows)
	e.ID = id
	if err := c.appendRow(ctx, c.expensesSheet, expenseRow(e)); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := c.readRows(ctx, c.expensesSheet)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(rows))
	for i, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed expense row", "row", i+2, "error", err)
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *Client) ReplaceExpenses(ctx context.Context, items []core.Expense) error {
	values := make([][]any, 0, len(items))
	for _, e := range items {
		values = append(values, expenseRow(e))
	}
	return c.rewriteData(ctx, c.expensesSheet, "A2:E", values)
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, c.expensesSheet, id)
}

// UpsertExpense mirrors a row keeping its id: the matching row is updated in
// place, or appended when absent.
func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) error {
	return c.upsert(ctx, c.expensesSheet, e.ID, expenseRow(e))
}

func (c *Client) AddIncome(ctx context.Context, in core.Income) (int64, error) {
	rows, err := c.readRows(ctx, c.incomesSheet)
	if err != nil {
		return 0, err
	}
	if in.ID == 0 {
		in.ID = nextID(rows)
	}
	if err := c.appendRow(ctx, c.incomesSheet, incomeRow(in)); err != nil {
		return 0, err
	}
	return in.ID, nil
}

func (c *Client) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := c.readRows(ctx, c.incomesSheet)
	if err != nil {
		return nil, err
	}
	out := make([]core.Income, 0, len(rows))
	for i, row := range rows {
		in, err := incomeFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed income row", "row", i+2, "error", err)
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *Client) ReplaceIncomes(ctx context.Context, items []core.Income) error {
	values := make([][]any, 0, len(items))
	for _, in := range items {
		values = append(values, incomeRow(in))
	}
	return c.rewriteData(ctx, c.incomesSheet, "A2:F", values)
}

func (c *Client) DeleteIncome(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, c.incomesSheet, id)
}

func (c *Client) UpsertIncome(ctx context.Context, in core.Income) error {
	return c.upsert(ctx, c.incomesSheet, in.ID, incomeRow(in))
}

func (c *Client) AddOrder(ctx context.Context, o core.Order) (int64, error) {
	rows, err := c.readRows(ctx, c.ordersSheet)
	if err != nil {
		return 0, err
	}
	o.ID = nextID(rows)
	if err := c.appendRow(ctx, c.ordersSheet, orderRow(o)); err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	rows, err := c.readRows(ctx, c.ordersSheet)
	if err != nil {
		return core.Order{}, err
	}
	idx := findRowByID(rows, id)
	if idx < 0 {
		return core.Order{}, core.ErrNotFound
	}
	return orderFromRow(rows[idx])
}

func (c *Client) ListOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := c.readRows(ctx, c.ordersSheet)
	if err != nil {
		return nil, err
	}
	out := make([]core.Order, 0, len(rows))
	for i, row := range rows {
		o, err := orderFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed order row", "row", i+2, "error", err)
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveryDate.Equal(out[j].DeliveryDate.Time) {
			return out[i].DeliveryDate.After(out[j].DeliveryDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *Client) UpdateOrder(ctx context.Context, o core.Order) error {
	rows, err := c.readRows(ctx, c.ordersSheet)
	if err != nil {
		return err
	}
	idx := findRowByID(rows, o.ID)
	if idx < 0 {
		return core.ErrNotFound
	}
	return c.updateRow(ctx, c.ordersSheet, idx, orderRow(o))
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, c.ordersSheet, id)
}

func (c *Client) UpsertOrder(ctx context.Context, o core.Order) error {
	return c.upsert(ctx, c.ordersSheet, o.ID, orderRow(o))
}

func (c *Client) SetDelivered(ctx context.Context, id int64, delivered bool) error {
	o, err := c.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	o.Delivered = delivered
	return c.UpdateOrder(ctx, o)
}

// SettleOrder appends the income row first and only then removes the order.
// The API offers no transactions, so a failed order delete is compensated by
// removing the income row that was just written.
func (c *Client) SettleOrder(ctx context.Context, orderID int64, in core.Income) error {
	rows, err := c.readRows(ctx, c.ordersSheet)
	if err != nil {
		return err
	}
	if findRowByID(rows, orderID) < 0 {
		return core.ErrNotFound
	}

	if err := c.appendRow(ctx, c.incomesSheet, incomeRow(in)); err != nil {
		return fmt.Errorf("settle order %d: append income: %w", orderID, err)
	}

	if err := c.deleteByID(ctx, c.ordersSheet, orderID); err != nil {
		if compErr := c.deleteByID(ctx, c.incomesSheet, in.ID); compErr != nil {
			return fmt.Errorf("settle order %d: delete order: %w (income row %d left behind: %v)",
				orderID, err, in.ID, compErr)
		}
		return fmt.Errorf("settle order %d: delete order: %w", orderID, err)
	}

	return nil
}

func (c *Client) readRows(ctx context.Context, sheetName string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:I", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

func (c *Client) appendRow(ctx context.Context, sheetName string, values []any) error {
	rng := fmt.Sprintf("%s!A:I", sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	// RAW keeps ISO dates and decimal amounts exactly as written
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheetName, err)
	}
	return nil
}

// updateRow overwrites the data row at the given zero-based index.
func (c *Client) updateRow(ctx context.Context, sheetName string, dataIdx int, values []any) error {
	rng := fmt.Sprintf("%s!A%d", sheetName, dataIdx+2)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// rewriteData clears the data range of a tab and writes the given rows.
func (c *Client) rewriteData(ctx context.Context, sheetName, dataRange string, values [][]any) error {
	rng := fmt.Sprintf("%s!%s", sheetName, dataRange)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	if len(values) == 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A2", sheetName), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", rng, err)
	}
	return nil
}

func (c *Client) deleteByID(ctx context.Context, sheetName string, id int64) error {
	rows, err := c.readRows(ctx, sheetName)
	if err != nil {
		return err
	}
	idx := findRowByID(rows, id)
	if idx < 0 {
		return core.ErrNotFound
	}

	sheetID, err := c.sheetID(ctx, sheetName)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx) + 1, // skip the header row
					EndIndex:   int64(idx) + 2,
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", id, sheetName, err)
	}
	return nil
}

func (c *Client) upsert(ctx context.Context, sheetName string, id int64, values []any) error {
	rows, err := c.readRows(ctx, sheetName)
	if err != nil {
		return err
	}
	if idx := findRowByID(rows, id); idx >= 0 {
		return c.updateRow(ctx, sheetName, idx, values)
	}
	return c.appendRow(ctx, sheetName, values)
}

// sheetID resolves the numeric id behind a tab title, needed for structural
// requests like row deletion.
func (c *Client) sheetID(ctx context.Context, sheetName string) (int64, error) {
	if id, ok := c.sheetIDs[sheetName]; ok {
		return id, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok := c.sheetIDs[sheetName]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", sheetName)
	}
	return id, nil
}

func expenseRow(e core.Expense) []any {
	return []any{strconv.FormatInt(e.ID, 10), e.Date.ISO(), e.Category, e.Amount.Decimal(), e.Comment}
}

func expenseFromRow(cols []string) (core.Expense, error) {
	if len(cols) < 4 {
		return core.Expense{}, fmt.Errorf("expected at least 4 columns, got %d", len(cols))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse id: %w", err)
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Expense{}, err
	}
	cents, err := core.ParseDecimalToCents(cols[3])
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{ID: id, Date: date, Category: cols[2], Amount: core.Money{Cents: cents}}
	if len(cols) >= 5 {
		e.Comment = cols[4]
	}
	return e, nil
}

func incomeRow(in core.Income) []any {
	return []any{strconv.FormatInt(in.ID, 10), in.Date.ISO(), in.Customer, in.Amount.Decimal(), in.Method.String(), in.Comment}
}

func incomeFromRow(cols []string) (core.Income, error) {
	if len(cols) < 5 {
		return core.Income{}, fmt.Errorf("expected at least 5 columns, got %d", len(cols))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse id: %w", err)
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Income{}, err
	}
	cents, err := core.ParseDecimalToCents(cols[3])
	if err != nil {
		return core.Income{}, err
	}
	in := core.Income{ID: id, Date: date, Customer: cols[2], Amount: core.Money{Cents: cents}, Method: core.PaymentMethod(cols[4])}
	if len(cols) >= 6 {
		in.Comment = cols[5]
	}
	return in, nil
}

func orderRow(o core.Order) []any {
	return []any{
		strconv.FormatInt(o.ID, 10),
		o.DeliveryDate.ISO(),
		o.Customer,
		o.Item,
		o.Price.Decimal(),
		o.Advance.Decimal(),
		o.PendingBalance.Decimal(),
		o.Description,
		strconv.FormatBool(o.Delivered),
	}
}

func orderFromRow(cols []string) (core.Order, error) {
	if len(cols) < 9 {
		return core.Order{}, fmt.Errorf("expected 9 columns, got %d", len(cols))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	if err != nil {
		return core.Order{}, fmt.Errorf("parse id: %w", err)
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Order{}, err
	}
	priceCents, err := core.ParseDecimalToCents(cols[4])
	if err != nil {
		return core.Order{}, err
	}
	advanceCents, err := core.ParseDecimalToCents(cols[5])
	if err != nil {
		return core.Order{}, err
	}
	pendingCents, err := core.ParseDecimalToCents(cols[6])
	if err != nil {
		return core.Order{}, err
	}
	delivered, err := strconv.ParseBool(strings.TrimSpace(cols[8]))
	if err != nil {
		return core.Order{}, fmt.Errorf("parse delivered flag: %w", err)
	}
	return core.Order{
		ID:             id,
		DeliveryDate:   date,
		Customer:       cols[2],
		Item:           cols[3],
		Price:          core.Money{Cents: priceCents},
		Advance:        core.Money{Cents: advanceCents},
		PendingBalance: core.Money{Cents: pendingCents},
		Description:    cols[7],
		Delivered:      delivered,
	}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func nextID(rows [][]string) int64 {
	var max int64
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64); err == nil && id > max {
			max = id
		}
	}
	return max + 1
}

func findRowByID(rows [][]string, id int64) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64); err == nil && v == id {
			return i
		}
	}
	return -1
}
