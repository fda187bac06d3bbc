package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/omarshaarawi/courtside/internal/models"
)

var (
	winnerColor = lipgloss.Color("42")
	mutedColor  = lipgloss.Color("240")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2).
			Width(22).
			Align(lipgloss.Center)
	winnerPanelStyle = panelStyle.
				BorderForeground(winnerColor).
				Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	noteStyle  = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

func (a *app) renderMarkdown(md string) error {
	if a.plain {
		_, err := fmt.Fprint(a.out, md)
		return err
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return fmt.Errorf("error creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("error rendering output: %w", err)
	}
	_, err = fmt.Fprint(a.out, out)
	return err
}

// renderOutcome draws the home and away panels side by side with the
// predicted winner highlighted.
func renderOutcome(outcome models.PredictionOutcome) string {
	home, away, ok := outcome.Sides()
	if !ok {
		home, away = "Home", "Away"
	}
	side := outcome.WinnerSide()

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		panel(home, outcome.HomeWinProbability, side == models.SideHome),
		" ",
		panel(away, outcome.AwayWinProbability, side == models.SideAway),
	)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(outcome.MatchupLabel))
	sb.WriteString("\n")
	sb.WriteString(panels)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Predicted winner: %s\n", lipgloss.NewStyle().Foreground(winnerColor).Bold(true).Render(outcome.Winner)))
	sb.WriteString(fmt.Sprintf("Confidence: %.1f%% (%s)", outcome.Confidence, models.ConfidenceBand(outcome.Confidence)))
	if outcome.SourceNote != "" {
		sb.WriteString("\n")
		sb.WriteString(noteStyle.Render(outcome.SourceNote))
	}
	return sb.String()
}

func panel(team string, probability float64, winner bool) string {
	body := fmt.Sprintf("%s\n%.1f%%", team, probability)
	if winner {
		return winnerPanelStyle.Render("🏆 " + body)
	}
	return panelStyle.Render(body)
}
