package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/catalog"
	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
	"github.com/omarshaarawi/courtside/internal/workflow"
)

const minPasswordLength = 6

const (
	msgCredentialsRequired = "Username and password are required."
	msgFieldsRequired      = "All fields are required."
	msgPasswordMismatch    = "Passwords do not match."
	msgPasswordTooShort    = "Password must be at least 6 characters long."
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Registration is the sign-up form as the user filled it in.
type Registration struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// ValidateRegistration runs the local form checks in order: required
// fields, matching passwords, then password length.
func ValidateRegistration(r Registration) *portal.RequestError {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" ||
		r.Password == "" || r.Confirm == "" {
		return portal.NewValidationError(msgFieldsRequired)
	}
	if r.Password != r.Confirm {
		return portal.NewValidationError(msgPasswordMismatch)
	}
	if len(r.Password) < minPasswordLength {
		return portal.NewValidationError(msgPasswordTooShort)
	}
	return nil
}

type PortalService struct {
	api   *portal.API
	store repository.CredentialStore
}

func NewPortalService(api *portal.API, store repository.CredentialStore) *PortalService {
	return &PortalService{api: api, store: store}
}

func (s *PortalService) Login(ctx context.Context, username, password string) (models.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.UserProfile{}, portal.NewValidationError(msgCredentialsRequired)
	}

	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		if portal.IsKind(err, portal.KindUnauthorized) {
			return models.UserProfile{}, ErrInvalidCredentials
		}
		return models.UserProfile{}, err
	}

	profile := models.ProfileFromUser(resp.User)
	if err := s.store.Save(ctx, resp.Token, profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("error saving session: %w", err)
	}

	slog.Info("Logged in", "username", profile.Username)
	return profile, nil
}

// Register creates the account. It does not log the user in.
func (s *PortalService) Register(ctx context.Context, r Registration) error {
	if reqErr := ValidateRegistration(r); reqErr != nil {
		return reqErr
	}

	err := s.api.Register(ctx, models.RegisterRequest{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	})
	if err != nil {
		return err
	}

	slog.Info("Registered", "username", r.Username)
	return nil
}

func (s *PortalService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("error clearing session: %w", err)
	}
	slog.Info("Logged out")
	return nil
}

func (s *PortalService) Session(ctx context.Context) (models.Session, error) {
	return s.store.Load(ctx)
}

// RefreshProfile fetches the profile and re-saves the cached snapshot under
// the token the request was made with. Nothing is written when the session
// was cleared or replaced while the request was in flight.
func (s *PortalService) RefreshProfile(ctx context.Context) (models.ProfileResponse, error) {
	session, err := s.store.Load(ctx)
	if err != nil {
		return models.ProfileResponse{}, fmt.Errorf("error loading session: %w", err)
	}

	resp, err := s.api.Profile(ctx)
	if err != nil {
		return models.ProfileResponse{}, err
	}

	updated, err := s.store.UpdateProfile(ctx, session.Token, models.ProfileFromUser(resp.User))
	if err != nil {
		return models.ProfileResponse{}, fmt.Errorf("error saving profile: %w", err)
	}
	if !updated {
		slog.Debug("Session changed during profile refresh, snapshot not saved")
	}
	return resp, nil
}

func (s *PortalService) History(ctx context.Context) (models.HistoryResponse, error) {
	return s.api.History(ctx)
}

// PredictionCompleted refreshes the profile so the recent predictions
// include the one just stored.
func (s *PortalService) PredictionCompleted(ctx context.Context, outcome models.PredictionOutcome) {
	resp, err := s.RefreshProfile(ctx)
	if err != nil {
		slog.Warn("Error refreshing profile after prediction", "prediction_id", outcome.ID, "error", err)
		return
	}
	slog.Info("Profile refreshed", "prediction_id", outcome.ID, "total_predictions", resp.TotalPredictions)
}

// Describe turns any error from this package, the workflow or the gateway
// into the line shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ambiguous *catalog.AmbiguousError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, workflow.ErrSubmitInFlight):
		return "A prediction is already running, hang on."
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "That step is not available right now. Reset and start over."
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("%q matches several teams (%s). Be more specific.", ambiguous.Query, abbreviations(ambiguous.Candidates))
	case errors.Is(err, catalog.ErrNoMatch):
		return "No team matches that name."
	}
	return portal.AsRequestError(err).Message
}
