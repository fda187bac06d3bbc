package memory

import (
	"context"
	"sync"

	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
)

type Store struct {
	token   string
	profile *models.UserProfile
	mu      sync.RWMutex
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Save(_ context.Context, token string, profile models.UserProfile) error {
	if token == "" {
		return repository.ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = &profile
	return nil
}

func (s *Store) UpdateProfile(_ context.Context, token string, profile models.UserProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return false, nil
	}
	s.profile = &profile
	return true, nil
}

func (s *Store) Load(_ context.Context) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return models.Session{}, nil
	}
	profile := *s.profile
	return models.Session{Token: s.token, Profile: &profile}, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = nil
	return nil
}

var _ repository.CredentialStore = (*Store)(nil)
