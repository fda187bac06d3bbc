package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/omarshaarawi/courtside/internal/config"
	"github.com/omarshaarawi/courtside/internal/metrics"
	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu       sync.Mutex
	delays   []time.Duration
	tasks    []func()
	canceled int
}

func (f *fakeScheduler) Schedule(delay time.Duration, task func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, delay)
	f.tasks = append(f.tasks, task)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.canceled++
	}, nil
}

func (f *fakeScheduler) scheduled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeScheduler) fire() {
	f.mu.Lock()
	tasks := f.tasks
	f.tasks = nil
	f.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

type fakeRedirector struct {
	calls atomic.Int32
}

func (r *fakeRedirector) RedirectToLogin() {
	r.calls.Add(1)
}

type fixture struct {
	client     *Client
	api        *API
	store      *memory.Store
	scheduler  *fakeScheduler
	redirector *fakeRedirector
}

func newFixture(t *testing.T, handler http.HandlerFunc, opts ...Option) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newFixtureURL(t, srv.URL, opts...)
}

func newFixtureURL(t *testing.T, url string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		scheduler:  &fakeScheduler{},
		redirector: &fakeRedirector{},
	}
	cfg := config.Portal{BaseURL: url, Timeout: 2 * time.Second, RedirectDelay: 2 * time.Second}
	opts = append([]Option{WithRedirect(f.scheduler, f.redirector)}, opts...)
	f.client = NewClient(cfg, f.store, opts...)
	f.api = NewAPI(f.client)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_AttachesBearerWhenPresent(t *testing.T) {
	var gotAuth, gotRequestID string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]interface{}{"teams": []map[string]string{{"abbr": "LAL", "name": "Los Angeles Lakers"}}})
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "secret-token", models.UserProfile{Username: "ana"}))

	teams, err := f.api.Teams(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, []models.Team{{Abbreviation: "LAL", DisplayName: "Los Angeles Lakers"}}, teams)
}

func TestDo_SendsWithoutTokenWhenAbsent(t *testing.T) {
	var gotAuth string
	var gotBody models.LoginRequest
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, models.LoginResponse{Token: "new-token", User: models.User{ID: 1, Username: "ana"}})
	})

	resp, err := f.api.Login(context.Background(), "ana", "hunter22")
	require.NoError(t, err)

	assert.Empty(t, gotAuth)
	assert.Equal(t, models.LoginRequest{Username: "ana", Password: "hunter22"}, gotBody)
	assert.Equal(t, "new-token", resp.Token)
	assert.Equal(t, "ana", resp.User.Username)
}

func TestDo_SuccessDecodesBodyUnchanged(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze-text", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      7,
			"matchup": "LAL vs BOS",
			"prediction": map[string]interface{}{
				"winner":               "LAL",
				"confidence":           68,
				"home_win_probability": 68,
				"away_win_probability": 35,
			},
		})
	})

	resp, err := f.api.AnalyzeText(context.Background(), "LAL vs BOS")
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, 68.0, resp.Prediction.HomeWinProbability)
	assert.Equal(t, 35.0, resp.Prediction.AwayWinProbability)
	assert.Empty(t, resp.StatsSource)
}

func TestDo_UnauthorizedClearsSessionAndSchedulesRedirect(t *testing.T) {
	bodies := map[string]func(w http.ResponseWriter){
		"json error body": func(w http.ResponseWriter) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expirado"})
		},
		"plain body": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("nope"))
		},
		"empty body": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}

	for name, write := range bodies {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) { write(w) })
			ctx := context.Background()
			require.NoError(t, f.store.Save(ctx, "stale", models.UserProfile{Username: "ana"}))

			_, err := f.api.AnalyzeText(ctx, "LAL vs BOS")
			require.Error(t, err)

			reqErr := AsRequestError(err)
			assert.Equal(t, KindUnauthorized, reqErr.Kind)
			assert.Equal(t, http.StatusUnauthorized, reqErr.Status)

			session, err := f.store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, session.Token)
			assert.Nil(t, session.Profile)

			require.Equal(t, 1, f.scheduler.scheduled())
			assert.Equal(t, 2*time.Second, f.scheduler.delays[0])
			assert.True(t, f.client.RedirectPending())
			assert.Zero(t, f.redirector.calls.Load(), "redirect must be deferred")

			f.scheduler.fire()
			assert.Equal(t, int32(1), f.redirector.calls.Load())
			assert.False(t, f.client.RedirectPending())
		})
	}
}

func TestDo_RepeatedUnauthorizedSchedulesOneRedirect(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()

	_, err := f.api.Teams(ctx)
	require.Error(t, err)
	_, err = f.api.Profile(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, f.scheduler.scheduled())
}

func TestLoginCancelsPendingRedirect(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			writeJSON(w, http.StatusOK, models.LoginResponse{Token: "fresh"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()

	_, err := f.api.Profile(ctx)
	require.Error(t, err)
	require.True(t, f.client.RedirectPending())

	_, err = f.api.Login(ctx, "ana", "hunter22")
	require.NoError(t, err)

	assert.False(t, f.client.RedirectPending())
	assert.Equal(t, 1, f.scheduler.canceled)
}

func TestStaleRedirectKeepsNewerHandle(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()

	_, err := f.api.Profile(ctx)
	require.Error(t, err)
	f.scheduler.mu.Lock()
	first := f.scheduler.tasks[0]
	f.scheduler.mu.Unlock()

	// The first task is already running when the redirect is cancelled and
	// a later 401 schedules a new one.
	f.client.CancelRedirect()
	_, err = f.api.Profile(ctx)
	require.Error(t, err)
	require.Equal(t, 2, f.scheduler.scheduled())

	first()
	assert.True(t, f.client.RedirectPending(), "the newer redirect is still tracked")

	f.client.CancelRedirect()
	assert.False(t, f.client.RedirectPending())
	assert.Equal(t, 2, f.scheduler.canceled)
}

func TestLoginRejectedDoesNotLeaveRedirect(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Credenciales inválidas"})
	})

	_, err := f.api.Login(context.Background(), "ana", "wrong")
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, f.client.RedirectPending())
	assert.Equal(t, 1, f.scheduler.canceled)
}

func TestDo_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    ErrorKind
		wantMessage string
	}{
		{name: "duplicate username", status: http.StatusConflict, body: `{"error":"El usuario ya existe"}`, wantKind: KindServerMessage, wantMessage: "El usuario ya existe"},
		{name: "bad request message", status: http.StatusBadRequest, body: `{"error":"Formato invalido"}`, wantKind: KindServerMessage, wantMessage: "Formato invalido"},
		{name: "ml unavailable", status: http.StatusServiceUnavailable, body: `{"error":"Servicio ML no disponible"}`, wantKind: KindServerMessage, wantMessage: "Servicio ML no disponible"},
		{name: "empty error field", status: http.StatusBadRequest, body: `{"error":"  "}`, wantKind: KindUnknown, wantMessage: msgUnknown},
		{name: "html error page", status: http.StatusInternalServerError, body: `<html>oops</html>`, wantKind: KindUnknown, wantMessage: msgUnknown},
		{name: "invalid token is not 401", status: http.StatusUnprocessableEntity, body: `{"error":"Token inválido"}`, wantKind: KindServerMessage, wantMessage: "Token inválido"},
		{name: "undecodable success", status: http.StatusOK, body: `not json`, wantKind: KindUnknown, wantMessage: msgUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			ctx := context.Background()
			require.NoError(t, f.store.Save(ctx, "tok", models.UserProfile{}))

			_, err := f.api.Profile(ctx)
			require.Error(t, err)

			reqErr := AsRequestError(err)
			assert.Equal(t, tt.wantKind, reqErr.Kind)
			assert.Equal(t, tt.wantMessage, reqErr.Message)

			session, err := f.store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok", session.Token, "only 401 tears the session down")
			assert.Zero(t, f.scheduler.scheduled())
		})
	}
}

func TestDo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixtureURL(t, url)
	_, err := f.api.Teams(context.Background())
	require.Error(t, err)

	reqErr := AsRequestError(err)
	assert.Equal(t, KindNetwork, reqErr.Kind)
	assert.Equal(t, msgNetwork, reqErr.Message)
	assert.NotNil(t, errors.Unwrap(reqErr))
}

func TestRegisterIgnoresBody(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	err := f.api.Register(context.Background(), models.RegisterRequest{Username: "ana", Email: "a@b.c", Password: "hunter22"})
	assert.NoError(t, err)
}

func TestClassifyIsTotal(t *testing.T) {
	statuses := []int{300, 400, 401, 403, 404, 409, 422, 500, 502, 503}
	bodies := []string{"", "{}", `{"error":"x"}`, `{"error":""}`, "[]", "garbage"}

	for _, status := range statuses {
		for _, body := range bodies {
			reqErr := classify(status, []byte(body))
			require.NotNil(t, reqErr)
			assert.NotEmpty(t, reqErr.Message)
			if status == http.StatusUnauthorized {
				assert.Equal(t, KindUnauthorized, reqErr.Kind)
			} else {
				assert.Contains(t, []ErrorKind{KindServerMessage, KindUnknown}, reqErr.Kind)
			}
		}
	}
}

func TestDo_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/teams" {
			writeJSON(w, http.StatusOK, models.TeamsResponse{})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}, WithMetrics(m))
	ctx := context.Background()

	_, err := f.api.Teams(ctx)
	require.NoError(t, err)
	_, err = f.api.Profile(ctx)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "courtside_portal_requests_total", "courtside_sessions_invalidated_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAsRequestError(t *testing.T) {
	assert.Nil(t, AsRequestError(nil))

	plain := AsRequestError(errors.New("boom"))
	assert.Equal(t, KindUnknown, plain.Kind)

	validation := NewValidationError("pick two teams")
	assert.True(t, IsKind(validation, KindValidation))
	assert.Equal(t, "pick two teams", validation.Error())
}
