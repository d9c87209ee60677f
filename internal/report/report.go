// Package report holds read-side reductions over loans that were already
// loaded. Nothing here touches storage or mutates a loan.
package report

import (
	"slices"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/pkg/calculator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StatusTotals struct {
	Active  int `json:"active"`
	Overdue int `json:"overdue"`
	Closed  int `json:"closed"`
	Total   int `json:"total"`
}

type PortfolioTotals struct {
	Principal   decimal.Decimal `json:"principal"`
	TotalDue    decimal.Decimal `json:"total_due"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// WindowTotal covers payments dated in [From, To).
type WindowTotal struct {
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type CollectorTotal struct {
	Collector domain.Actor    `json:"collector"`
	Count     int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

type Dashboard struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Status      StatusTotals     `json:"status"`
	Portfolio   PortfolioTotals  `json:"portfolio"`
	ThisMonth   WindowTotal      `json:"this_month"`
	Last24Hours WindowTotal      `json:"last_24_hours"`
	Collectors  []CollectorTotal `json:"collectors"`
}

// UniqueLoans drops repeated loan ids, keeping the first occurrence.
func UniqueLoans(loans []*domain.Loan) []*domain.Loan {
	seen := make(map[uuid.UUID]struct{}, len(loans))
	out := make([]*domain.Loan, 0, len(loans))
	for _, l := range loans {
		if l == nil {
			continue
		}
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

func CountByStatus(loans []*domain.Loan) StatusTotals {
	var totals StatusTotals
	for _, l := range UniqueLoans(loans) {
		switch l.Status {
		case domain.LoanStatusActive:
			totals.Active++
		case domain.LoanStatusOverdue:
			totals.Overdue++
		case domain.LoanStatusClosed:
			totals.Closed++
		}
		totals.Total++
	}
	return totals
}

func Portfolio(loans []*domain.Loan) PortfolioTotals {
	totals := PortfolioTotals{
		Principal:   decimal.Zero,
		TotalDue:    decimal.Zero,
		TotalPaid:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, l := range UniqueLoans(loans) {
		totals.Principal = totals.Principal.Add(l.Principal)
		totals.TotalDue = totals.TotalDue.Add(l.TotalDue())
		totals.TotalPaid = totals.TotalPaid.Add(l.TotalPaid())
		totals.Outstanding = totals.Outstanding.Add(l.Outstanding())
	}
	return totals
}

// Payments flattens the payment histories of loans. A payment id is only
// ever returned once, even if the same loan was passed twice.
func Payments(loans []*domain.Loan) []domain.Payment {
	seen := make(map[uuid.UUID]struct{})
	var out []domain.Payment
	for _, l := range UniqueLoans(loans) {
		for _, p := range l.Payments {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func CollectionsInWindow(payments []domain.Payment, from, to time.Time) WindowTotal {
	total := WindowTotal{From: from, To: to, Amount: decimal.Zero}
	for _, p := range payments {
		if calculator.InWindow(p.Date, from, to) {
			total.Count++
			total.Amount = total.Amount.Add(p.Amount)
		}
	}
	return total
}

// ThisMonth sums payments dated in the calendar month containing now.
func ThisMonth(payments []domain.Payment, now time.Time) WindowTotal {
	from, to := calculator.MonthBounds(now)
	return CollectionsInWindow(payments, from, to)
}

// LastDay sums payments dated in the trailing 24 hours before now. Payment
// dates are calendar days at midnight, so in practice this counts today's
// payments plus yesterday's only when now is exactly midnight.
func LastDay(payments []domain.Payment, now time.Time) WindowTotal {
	return CollectionsInWindow(payments, now.Add(-24*time.Hour), now)
}

// ByCollector groups payments by who recorded them, largest amount first.
func ByCollector(payments []domain.Payment) []CollectorTotal {
	index := make(map[domain.Actor]int)
	out := []CollectorTotal{}
	for _, p := range payments {
		i, ok := index[p.RecordedBy]
		if !ok {
			i = len(out)
			index[p.RecordedBy] = i
			out = append(out, CollectorTotal{Collector: p.RecordedBy, Amount: decimal.Zero})
		}
		out[i].Count++
		out[i].Amount = out[i].Amount.Add(p.Amount)
	}

	slices.SortStableFunc(out, func(a, b CollectorTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return b.Count - a.Count
	})
	return out
}

func BuildDashboard(loans []*domain.Loan, now time.Time) Dashboard {
	payments := Payments(loans)
	return Dashboard{
		GeneratedAt: now,
		Status:      CountByStatus(loans),
		Portfolio:   Portfolio(loans),
		ThisMonth:   ThisMonth(payments, now),
		Last24Hours: LastDay(payments, now),
		Collectors:  ByCollector(payments),
	}
}
