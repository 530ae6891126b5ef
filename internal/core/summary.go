package core

import (
	"fmt"
	"sort"
)

// MonthSummary is one row of the monthly income/expense report.
type MonthSummary struct {
	Year         int
	Month        int // 1-12
	TotalExpense Money
	TotalIncome  Money
	NetSavings   Money
}

// MonthlySummary partitions expenses and incomes by calendar month, sums the
// amounts on each side and outer-joins the partitions: a month present on
// only one side gets zero for the other. Net savings is income minus
// expense per month. The result is sorted ascending by month, so the output
// does not depend on the order of the inputs. A record with an unset date
// fails the whole computation rather than being dropped.
func MonthlySummary(expenses []Expense, incomes []Income) ([]MonthSummary, error) {
	expByMonth := make(map[MonthKey]int64)
	incByMonth := make(map[MonthKey]int64)

	for i, e := range expenses {
		if e.Date.IsZero() {
			return nil, fmt.Errorf("expense %d: %w", i, ErrUnparsableDate)
		}
		expByMonth[e.Date.MonthKey()] += e.Amount.Cents
	}
	for i, in := range incomes {
		if in.Date.IsZero() {
			return nil, fmt.Errorf("income %d: %w", i, ErrUnparsableDate)
		}
		incByMonth[in.Date.MonthKey()] += in.Amount.Cents
	}

	seen := make(map[MonthKey]struct{}, len(expByMonth)+len(incByMonth))
	keys := make([]MonthKey, 0, len(expByMonth)+len(incByMonth))
	for k := range expByMonth {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range incByMonth {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]MonthSummary, 0, len(keys))
	for _, k := range keys {
		exp := expByMonth[k]
		inc := incByMonth[k]
		out = append(out, MonthSummary{
			Year:         k.Year,
			Month:        k.Month,
			TotalExpense: Money{Cents: exp},
			TotalIncome:  Money{Cents: inc},
			NetSavings:   Money{Cents: inc - exp},
		})
	}
	return out, nil
}
