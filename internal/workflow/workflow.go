// Package workflow drives the two-team selection, its submission to the
// prediction endpoint and the resulting outcome.
//
// Selections move Empty -> HomeChosen -> BothChosen -> Submitting and end in
// Result or Failed. Clearing the home team also clears the away team, the
// same abbreviation can never be chosen for both sides, and only one
// submission may be in flight at a time.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/metrics"
	"github.com/omarshaarawi/courtside/internal/models"
)

type State int

const (
	StateEmpty State = iota
	StateHomeChosen
	StateBothChosen
	StateSubmitting
	StateResult
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHomeChosen:
		return "home_chosen"
	case StateBothChosen:
		return "both_chosen"
	case StateSubmitting:
		return "submitting"
	case StateResult:
		return "result"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	msgSelectBoth = "Select both teams to continue."
	msgSameTeam   = "You cannot select the same team twice."
)

var (
	ErrSubmitInFlight    = errors.New("a prediction is already being submitted")
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

type Predictor interface {
	AnalyzeText(ctx context.Context, text string) (models.AnalyzeResponse, error)
}

// CompletionListener is told about every prediction the portal stored, so
// the user's history can be refreshed.
type CompletionListener interface {
	PredictionCompleted(ctx context.Context, outcome models.PredictionOutcome)
}

type ListenerFunc func(ctx context.Context, outcome models.PredictionOutcome)

func (f ListenerFunc) PredictionCompleted(ctx context.Context, outcome models.PredictionOutcome) {
	f(ctx, outcome)
}

type phase int

const (
	phaseSelecting phase = iota
	phaseSubmitting
	phaseResult
	phaseFailed
)

type Snapshot struct {
	State     State
	Selection models.Selection
	Outcome   *models.PredictionOutcome
	Failure   *portal.RequestError
}

type Workflow struct {
	predictor Predictor
	listener  CompletionListener
	metrics   *metrics.Metrics

	mu         sync.Mutex
	selection  models.Selection
	phase      phase
	outcome    *models.PredictionOutcome
	failure    *portal.RequestError
	generation uint64
	inFlight   bool
}

type Option func(*Workflow)

func WithListener(l CompletionListener) Option {
	return func(w *Workflow) { w.listener = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func New(predictor Predictor, opts ...Option) *Workflow {
	w := &Workflow{predictor: predictor}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Validate is the client-side precondition for a submission.
func Validate(sel models.Selection) *portal.RequestError {
	if !sel.Complete() {
		return portal.NewValidationError(msgSelectBoth)
	}
	if sel.Home.SameAs(*sel.Away) {
		return portal.NewValidationError(msgSameTeam)
	}
	return nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{State: w.stateLocked(), Failure: w.failure}
	if w.selection.Home != nil {
		home := *w.selection.Home
		snap.Selection.Home = &home
	}
	if w.selection.Away != nil {
		away := *w.selection.Away
		snap.Selection.Away = &away
	}
	if w.outcome != nil {
		outcome := *w.outcome
		snap.Outcome = &outcome
	}
	return snap
}

func (w *Workflow) stateLocked() State {
	switch w.phase {
	case phaseSubmitting:
		return StateSubmitting
	case phaseResult:
		return StateResult
	case phaseFailed:
		return StateFailed
	}
	switch {
	case w.selection.Home == nil:
		return StateEmpty
	case w.selection.Away == nil:
		return StateHomeChosen
	default:
		return StateBothChosen
	}
}

// editableLocked reports whether the selection may change. A failed attempt
// keeps its selection editable so the user can correct it and re-submit.
func (w *Workflow) editableLocked() bool {
	return w.phase == phaseSelecting || w.phase == phaseFailed
}

func (w *Workflow) ChooseHome(team models.Team) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editableLocked() || w.selection.Home != nil {
		return fmt.Errorf("%w: choose home from %s", ErrInvalidTransition, w.stateLocked())
	}
	w.selection.Home = &team
	w.phase = phaseSelecting
	w.failure = nil
	return nil
}

// ClearHome drops the home team and, with it, any away team.
func (w *Workflow) ClearHome() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editableLocked() {
		return fmt.Errorf("%w: clear home from %s", ErrInvalidTransition, w.stateLocked())
	}
	w.selection = models.Selection{}
	w.phase = phaseSelecting
	w.failure = nil
	return nil
}

func (w *Workflow) ChooseAway(team models.Team) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editableLocked() || w.selection.Home == nil || w.selection.Away != nil {
		return fmt.Errorf("%w: choose away from %s", ErrInvalidTransition, w.stateLocked())
	}
	if w.selection.Home.SameAs(team) {
		return portal.NewValidationError(msgSameTeam)
	}
	w.selection.Away = &team
	w.phase = phaseSelecting
	w.failure = nil
	return nil
}

func (w *Workflow) ClearAway() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editableLocked() {
		return fmt.Errorf("%w: clear away from %s", ErrInvalidTransition, w.stateLocked())
	}
	w.selection.Away = nil
	w.phase = phaseSelecting
	w.failure = nil
	return nil
}

// Submit validates the selection locally and, if it holds, asks the portal
// for a prediction. Failures are kept as the Failed state and also returned.
func (w *Workflow) Submit(ctx context.Context) (models.PredictionOutcome, error) {
	w.mu.Lock()
	// A reset does not end the call in flight, so this is checked separately
	// from the phase.
	if w.inFlight {
		w.mu.Unlock()
		return models.PredictionOutcome{}, ErrSubmitInFlight
	}
	if w.phase == phaseResult {
		w.mu.Unlock()
		return models.PredictionOutcome{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, StateResult)
	}

	if reqErr := Validate(w.selection); reqErr != nil {
		w.phase = phaseFailed
		w.failure = reqErr
		w.mu.Unlock()
		return models.PredictionOutcome{}, reqErr
	}

	text := models.MatchupLabel(*w.selection.Home, *w.selection.Away)
	generation := w.generation
	w.phase = phaseSubmitting
	w.failure = nil
	w.inFlight = true
	w.mu.Unlock()

	resp, err := w.predictor.AnalyzeText(ctx, text)

	w.mu.Lock()
	w.inFlight = false
	stale := generation != w.generation
	if err != nil {
		reqErr := portal.AsRequestError(err)
		if !stale {
			w.phase = phaseFailed
			w.failure = reqErr
		}
		w.mu.Unlock()
		slog.Info("Prediction failed", "matchup", text, "kind", reqErr.Kind.String())
		return models.PredictionOutcome{}, reqErr
	}

	outcome := models.OutcomeFromResponse(resp)
	if !stale {
		w.phase = phaseResult
		w.outcome = &outcome
	}
	w.mu.Unlock()

	slog.Info("Prediction completed", "matchup", outcome.MatchupLabel, "winner", outcome.Winner, "id", outcome.ID)
	w.metrics.PredictionCompleted()
	// The portal stored the prediction even when a reset discarded it here,
	// so history listeners are told either way.
	if w.listener != nil {
		w.listener.PredictionCompleted(ctx, outcome)
	}
	return outcome, nil
}

// Reset returns to Empty from any state. A submission still in flight is
// not aborted; its result is discarded when it arrives.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.generation++
	w.selection = models.Selection{}
	w.phase = phaseSelecting
	w.outcome = nil
	w.failure = nil
}
