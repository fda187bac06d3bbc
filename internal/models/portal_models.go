package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type ProfileResponse struct {
	User              User               `json:"user"`
	TotalPredictions  int                `json:"total_predictions"`
	RecentPredictions []PredictionRecord `json:"recent_predictions"`
}

type HistoryResponse struct {
	Total       int                `json:"total"`
	Predictions []PredictionRecord `json:"predictions"`
}

// PredictionRecord is a persisted prediction as returned by the history and
// profile endpoints. Percentages are already scaled to 0-100.
type PredictionRecord struct {
	ID              int64   `json:"id"`
	HomeTeam        string  `json:"home_team"`
	AwayTeam        string  `json:"away_team"`
	PredictedWinner string  `json:"predicted_winner"`
	Confidence      float64 `json:"confidence"`
	HomeWinProb     float64 `json:"home_win_prob"`
	AwayWinProb     float64 `json:"away_win_prob"`
	CreatedAt       string  `json:"created_at"`
}

type TeamsResponse struct {
	Total int         `json:"total"`
	Teams []TeamEntry `json:"teams"`
}

type TeamEntry struct {
	Abbr string `json:"abbr"`
	Name string `json:"name"`
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

type AnalyzeResponse struct {
	Success     bool             `json:"success"`
	ID          int64            `json:"id"`
	Matchup     string           `json:"matchup"`
	StatsSource string           `json:"stats_source,omitempty"`
	Prediction  PredictionScores `json:"prediction"`
}

type PredictionScores struct {
	Winner             string  `json:"winner"`
	Confidence         float64 `json:"confidence"`
	HomeWinProbability float64 `json:"home_win_probability"`
	AwayWinProbability float64 `json:"away_win_probability"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
