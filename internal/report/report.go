// Package report renders store contents as plain text for the CLI.
package report

import (
	"fmt"
	"strings"

	"StrategyDesk/internal/model"
)

// Summary aggregates a set of strategies.
type Summary struct {
	Count         int
	Active        int
	Capital       float64
	CapitalUsed   float64
	PnL           float64
	UnrealizedPnL float64
}

// Summarize totals the strategies.
func Summarize(list []model.Strategy) Summary {
	var s Summary
	for _, st := range list {
		s.Count++
		if st.IsActive {
			s.Active++
		}
		s.Capital += st.Capital
		s.CapitalUsed += st.CapitalUsed
		s.PnL += st.PnL
		s.UnrealizedPnL += st.UnrealizedPnL
	}
	return s
}

// FormatProfile formats the user profile. A nil profile means it has not
// been fetched.
func FormatProfile(id model.Identity, p *model.Profile) string {
	var b strings.Builder
	b.WriteString("User\n\n")
	if !id.HasUser() {
		b.WriteString("Not signed in\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("ID: %d\n", id.UserID))
	if p == nil {
		b.WriteString("Profile: not loaded\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Username: %s\n", p.Username))
	b.WriteString(fmt.Sprintf("Name: %s\n", p.Name))
	if p.Email != "" {
		b.WriteString(fmt.Sprintf("Email: %s\n", p.Email))
	}
	b.WriteString(fmt.Sprintf("Active: %v | Verified: %v\n", p.IsActive, p.IsVerified))
	b.WriteString(fmt.Sprintf("Capital: %.2f (used %.2f, remaining %.2f)\n", p.Capital, p.CapitalUsed, p.CapitalRemaining))
	return b.String()
}

// FormatStrategies formats a strategy list followed by its summary.
func FormatStrategies(title string, list []model.Strategy) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	if len(list) == 0 {
		b.WriteString("No strategies\n")
		return b.String()
	}
	for _, st := range list {
		b.WriteString(FormatStrategy(st))
	}
	b.WriteString("  ─────────────────\n")
	s := Summarize(list)
	b.WriteString(fmt.Sprintf("  %d strategies, %d active\n", s.Count, s.Active))
	b.WriteString(fmt.Sprintf("  Capital: %.2f (used %.2f)\n", s.Capital, s.CapitalUsed))
	b.WriteString(fmt.Sprintf("  PnL: %+.2f | Unrealized: %+.2f\n", s.PnL, s.UnrealizedPnL))
	return b.String()
}

// FormatStrategy formats one strategy line with its description.
func FormatStrategy(st model.Strategy) string {
	status := "inactive"
	if st.IsActive {
		status = "active"
	}
	line := fmt.Sprintf("#%d %s [%s] units=%.2f pnl=%+.2f unrealized=%+.2f capital=%.2f\n",
		st.ID, st.Name, status, st.Units, st.PnL, st.UnrealizedPnL, st.Capital)
	if st.Description != "" {
		line += "   " + st.Description + "\n"
	}
	return line
}
