package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/omarshaarawi/courtside/internal/models"
)

func abbreviations(teams []models.Team) string {
	abbrs := make([]string, len(teams))
	for i, t := range teams {
		abbrs[i] = t.Abbreviation
	}
	return strings.Join(abbrs, ", ")
}

func FormatTeams(teams []models.Team) string {
	var sb strings.Builder
	sb.WriteString("🏀 *Teams*\n\n")

	if len(teams) == 0 {
		sb.WriteString("No teams match.")
		return sb.String()
	}

	for _, team := range teams {
		sb.WriteString(fmt.Sprintf("• %s %s\n", Bold(team.Abbreviation), Escape(team.DisplayName)))
	}
	return sb.String()
}

// FormatSelection shows the pickers as they stand.
func FormatSelection(sel models.Selection) string {
	home, away := "_not chosen_", "_not chosen_"
	if sel.Home != nil {
		home = fmt.Sprintf("%s %s", Bold(sel.Home.Abbreviation), Escape(sel.Home.DisplayName))
	}
	if sel.Away != nil {
		away = fmt.Sprintf("%s %s", Bold(sel.Away.Abbreviation), Escape(sel.Away.DisplayName))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏠 Home: %s\n", home))
	sb.WriteString(fmt.Sprintf("✈️ Away: %s\n", away))
	return sb.String()
}

func FormatOutcome(outcome models.PredictionOutcome) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏀 %s\n", Bold(outcome.MatchupLabel)))
	sb.WriteString("━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("🏆 Predicted winner: %s\n", Bold(outcome.Winner)))
	sb.WriteString(fmt.Sprintf("Confidence: %.1f%% (%s)\n\n", outcome.Confidence, models.ConfidenceBand(outcome.Confidence)))

	home, away, ok := outcome.Sides()
	if ok {
		side := outcome.WinnerSide()
		sb.WriteString(sideLine(home, outcome.HomeWinProbability, side == models.SideHome))
		sb.WriteString(sideLine(away, outcome.AwayWinProbability, side == models.SideAway))
	} else {
		sb.WriteString(fmt.Sprintf("Home win: %.1f%%\n", outcome.HomeWinProbability))
		sb.WriteString(fmt.Sprintf("Away win: %.1f%%\n", outcome.AwayWinProbability))
	}

	if outcome.SourceNote != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", Italic(outcome.SourceNote)))
	}
	return sb.String()
}

func sideLine(team string, probability float64, winner bool) string {
	if winner {
		return fmt.Sprintf("✅ %s %.1f%%\n", Bold(team), probability)
	}
	return fmt.Sprintf("▫️ %s %.1f%%\n", Escape(team), probability)
}

func FormatHistory(records []models.PredictionRecord, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Prediction History* (%d)\n\n", total))

	if len(records) == 0 {
		sb.WriteString("No predictions yet.")
		return sb.String()
	}

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s vs %s\n", Bold(r.HomeTeam), Bold(r.AwayTeam)))
		sb.WriteString(fmt.Sprintf("   Winner: %s (%.1f%%, %s)\n", Escape(r.PredictedWinner), r.Confidence, models.ConfidenceBand(r.Confidence)))
		sb.WriteString(fmt.Sprintf("   Home %.1f%% - Away %.1f%%\n", r.HomeWinProb, r.AwayWinProb))
		if r.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", Escape(r.CreatedAt)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStatus describes the stored session. expiry is the zero time when
// the token carries no readable expiry.
func FormatStatus(session models.Session, expiry time.Time, now time.Time) string {
	if !session.Authenticated() {
		return "🔒 Not logged in."
	}

	var sb strings.Builder
	name := "unknown user"
	if session.Profile != nil && session.Profile.Username != "" {
		name = session.Profile.Username
	}
	sb.WriteString(fmt.Sprintf("🔓 Logged in as %s\n", Bold(name)))
	if session.Profile != nil && session.Profile.Email != "" {
		sb.WriteString(fmt.Sprintf("Email: %s\n", Escape(session.Profile.Email)))
	}

	switch {
	case expiry.IsZero():
	case expiry.After(now):
		sb.WriteString(fmt.Sprintf("Token expires in %s\n", expiry.Sub(now).Round(time.Minute)))
	default:
		sb.WriteString("Token has expired; the next request will ask you to log in again.\n")
	}
	return sb.String()
}
