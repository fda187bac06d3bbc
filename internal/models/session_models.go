package models

import "strings"

// MatchupSeparator joins the home and away abbreviations in a matchup label.
// The same separator is used to build the request text and to split the
// label back when highlighting the winner.
const MatchupSeparator = " vs "

type UserProfile struct {
	ID       int
	Username string
	Email    string
}

func ProfileFromUser(u User) UserProfile {
	return UserProfile{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Session is the persisted login state. Profile is only meaningful when
// Token is non-empty.
type Session struct {
	Token   string
	Profile *UserProfile
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

type Team struct {
	Abbreviation string
	DisplayName  string
}

func TeamFromEntry(e TeamEntry) Team {
	return Team{Abbreviation: e.Abbr, DisplayName: e.Name}
}

// SameAs compares abbreviations case-insensitively.
func (t Team) SameAs(other Team) bool {
	return strings.EqualFold(t.Abbreviation, other.Abbreviation)
}

type Selection struct {
	Home *Team
	Away *Team
}

func (s Selection) Complete() bool {
	return s.Home != nil && s.Away != nil
}

func MatchupLabel(home, away Team) string {
	return home.Abbreviation + MatchupSeparator + away.Abbreviation
}

type Side int

const (
	SideNone Side = iota
	SideHome
	SideAway
)

func (s Side) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return "none"
	}
}

// PredictionOutcome is a completed prediction. The probabilities and the
// confidence are reported independently by the model and are kept as-is.
type PredictionOutcome struct {
	ID                 int64
	MatchupLabel       string
	Winner             string
	HomeWinProbability float64
	AwayWinProbability float64
	Confidence         float64
	SourceNote         string
}

func OutcomeFromResponse(r AnalyzeResponse) PredictionOutcome {
	return PredictionOutcome{
		ID:                 r.ID,
		MatchupLabel:       r.Matchup,
		Winner:             r.Prediction.Winner,
		HomeWinProbability: r.Prediction.HomeWinProbability,
		AwayWinProbability: r.Prediction.AwayWinProbability,
		Confidence:         r.Prediction.Confidence,
		SourceNote:         r.StatsSource,
	}
}

// Sides splits the matchup label into home and away abbreviations.
func (o PredictionOutcome) Sides() (home, away string, ok bool) {
	parts := strings.Split(o.MatchupLabel, MatchupSeparator)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// WinnerSide reports which panel the predicted winner belongs to.
func (o PredictionOutcome) WinnerSide() Side {
	home, away, ok := o.Sides()
	if !ok {
		return SideNone
	}
	switch o.Winner {
	case home:
		return SideHome
	case away:
		return SideAway
	default:
		return SideNone
	}
}

func ConfidenceBand(confidence float64) string {
	switch {
	case confidence >= 70:
		return "high"
	case confidence >= 60:
		return "medium"
	default:
		return "low"
	}
}
