// Package catalog caches the selectable teams and filters them for the two
// team pickers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/omarshaarawi/courtside/internal/models"
	"golang.org/x/text/cases"
)

const similarityThreshold = 0.7

var ErrNoMatch = errors.New("no team matches")

type AmbiguousError struct {
	Query      string
	Candidates []models.Team
}

func (e *AmbiguousError) Error() string {
	abbrs := make([]string, len(e.Candidates))
	for i, t := range e.Candidates {
		abbrs[i] = t.Abbreviation
	}
	return fmt.Sprintf("%q matches several teams: %s", e.Query, strings.Join(abbrs, ", "))
}

type TeamLister interface {
	Teams(ctx context.Context) ([]models.Team, error)
}

// Catalog loads the team list once and serves it until Reset.
type Catalog struct {
	lister TeamLister

	mu     sync.Mutex
	teams  []models.Team
	loaded bool
}

func New(lister TeamLister) *Catalog {
	return &Catalog{lister: lister}
}

// Load returns the cached teams, fetching them on first use. Failed loads
// are not cached.
func (c *Catalog) Load(ctx context.Context) ([]models.Team, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.teams, nil
	}

	teams, err := c.lister.Teams(ctx)
	if err != nil {
		return nil, err
	}
	c.teams = teams
	c.loaded = true
	return c.teams, nil
}

func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams = nil
	c.loaded = false
}

// Filter keeps teams whose abbreviation or name contains query, ignoring
// case, and drops exclude (the other picker's choice). Order is preserved.
func Filter(pool []models.Team, query string, exclude *models.Team) []models.Team {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))

	out := make([]models.Team, 0, len(pool))
	for _, team := range pool {
		if exclude != nil && team.SameAs(*exclude) {
			continue
		}
		if q == "" ||
			strings.Contains(fold.String(team.Abbreviation), q) ||
			strings.Contains(fold.String(team.DisplayName), q) {
			out = append(out, team)
		}
	}
	return out
}

// Resolve picks one team for free text such as "LAL", "lakers" or "Lakres".
func Resolve(pool []models.Team, query string) (models.Team, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.Team{}, ErrNoMatch
	}

	fold := cases.Fold()
	fq := fold.String(q)
	for _, team := range pool {
		if fold.String(team.Abbreviation) == fq || fold.String(team.DisplayName) == fq {
			return team, nil
		}
	}

	matches := Filter(pool, q, nil)
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return models.Team{}, &AmbiguousError{Query: q, Candidates: matches}
	}

	names := make([]string, len(pool))
	for i, team := range pool {
		names[i] = team.DisplayName
	}
	if ranks := fuzzy.RankFindNormalizedFold(q, names); len(ranks) == 1 {
		return pool[ranks[0].OriginalIndex], nil
	}

	return closest(pool, fq)
}

func closest(pool []models.Team, fq string) (models.Team, error) {
	fold := cases.Fold()
	best := -1
	bestScore := 0.0

	for i, team := range pool {
		for _, candidate := range []string{fold.String(team.DisplayName), lastWord(fold.String(team.DisplayName))} {
			distance := fuzzy.LevenshteinDistance(fq, candidate)
			maxLen := float64(max(len(fq), len(candidate)))
			similarity := 1 - float64(distance)/maxLen

			if similarity > similarityThreshold && similarity > bestScore {
				bestScore = similarity
				best = i
			}
		}
	}

	if best == -1 {
		return models.Team{}, fmt.Errorf("%w %q", ErrNoMatch, fq)
	}
	return pool[best], nil
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}
