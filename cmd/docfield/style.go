package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	promptStyle = lipgloss.NewStyle().Bold(true)
)

func statusLabel(s docfield.EvalStatus) string {
	label := s.String()
	switch s {
	case docfield.StatusResolved:
		return okStyle.Render(label)
	case docfield.StatusFailed:
		return errStyle.Render(label)
	default:
		return warnStyle.Render(label)
	}
}
