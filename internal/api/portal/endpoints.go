package portal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omarshaarawi/courtside/internal/models"
)

type API struct {
	client *Client
}

func NewAPI(client *Client) *API {
	return &API{client: client}
}

// Login exchanges credentials for a token. It does not persist anything;
// storing the session is the caller's decision.
func (a *API) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := a.client.Do(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		// Rejected credentials come back as 401; the user is already at login.
		if IsKind(err, KindUnauthorized) {
			a.client.CancelRedirect()
		}
		return models.LoginResponse{}, fmt.Errorf("logging in: %w", err)
	}
	if resp.Token == "" {
		return models.LoginResponse{}, unknownError(http.StatusOK, fmt.Errorf("login response without token"))
	}
	// A fresh login makes any redirect left over from an expired session moot.
	a.client.CancelRedirect()
	return resp, nil
}

func (a *API) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := a.client.Do(ctx, http.MethodPost, "/register", req, nil); err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	return nil
}

func (a *API) Profile(ctx context.Context) (models.ProfileResponse, error) {
	var resp models.ProfileResponse
	if err := a.client.Do(ctx, http.MethodGet, "/profile", nil, &resp); err != nil {
		return models.ProfileResponse{}, fmt.Errorf("fetching profile: %w", err)
	}
	return resp, nil
}

func (a *API) History(ctx context.Context) (models.HistoryResponse, error) {
	var resp models.HistoryResponse
	if err := a.client.Do(ctx, http.MethodGet, "/predictions/history", nil, &resp); err != nil {
		return models.HistoryResponse{}, fmt.Errorf("fetching prediction history: %w", err)
	}
	return resp, nil
}

func (a *API) Teams(ctx context.Context) ([]models.Team, error) {
	var resp models.TeamsResponse
	if err := a.client.Do(ctx, http.MethodGet, "/teams", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}

	teams := make([]models.Team, len(resp.Teams))
	for i, entry := range resp.Teams {
		teams[i] = models.TeamFromEntry(entry)
	}
	return teams, nil
}

func (a *API) AnalyzeText(ctx context.Context, text string) (models.AnalyzeResponse, error) {
	var resp models.AnalyzeResponse
	if err := a.client.Do(ctx, http.MethodPost, "/analyze-text", models.AnalyzeRequest{Text: text}, &resp); err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("analyzing %q: %w", text, err)
	}
	return resp, nil
}

func (a *API) Health(ctx context.Context) (models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := a.client.Do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return models.HealthResponse{}, fmt.Errorf("checking portal health: %w", err)
	}
	return resp, nil
}
