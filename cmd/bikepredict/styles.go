package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bike-predict/internal/form"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

var (
	accent = lipgloss.Color("#059669")
	muted  = lipgloss.Color("#6b7280")
	danger = lipgloss.Color("#e53935")

	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	codeStyle  = lipgloss.NewStyle().Foreground(muted).Width(6).Align(lipgloss.Right)
	priceStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	noteStyle  = lipgloss.NewStyle().Foreground(muted).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(danger)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 3)
)

func renderEntries(title string, entries []models.Entry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString(noteStyle.Render("none"))
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s\n", codeStyle.Render(fmt.Sprint(e.Code)), utils.TitleCase(e.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderResult(st form.State) string {
	if st.Prediction == nil {
		return errorStyle.Render(st.Error)
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		"Estimated Value",
		priceStyle.Render(utils.FormatINR(*st.Prediction)),
		noteStyle.Render("Based on current market trends"),
	)
	return cardStyle.Render(body)
}
