package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/catalog"
	"github.com/omarshaarawi/courtside/internal/guard"
	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
	"github.com/omarshaarawi/courtside/internal/service"
	"github.com/omarshaarawi/courtside/internal/workflow"
)

const (
	msgLoginPrompt = "🔒 Please log in: /login <username> <password>"
	msgExpired     = "⏰ Your session expired. Log in again: /login <username> <password>"
	msgHelp        = "Available commands:\n" +
		"/login <username> <password> - Log in\n" +
		"/register <username> <email> <password> <confirm> - Create an account\n" +
		"/logout - Log out\n" +
		"/status - Show the current session\n" +
		"/teams [query] - List or search teams\n" +
		"/home <team> - Choose the home team\n" +
		"/away <team> - Choose the away team\n" +
		"/clearhome - Clear the home team (and the away team)\n" +
		"/clearaway - Clear the away team\n" +
		"/predict - Predict the chosen matchup\n" +
		"/reset - Start a new prediction\n" +
		"/history - Show your prediction history"
)

type Handler struct {
	service  *service.PortalService
	guard    *guard.Guard
	catalog  *catalog.Catalog
	workflow *workflow.Workflow
	now      func() time.Time
}

func NewHandler(svc *service.PortalService, g *guard.Guard, cat *catalog.Catalog, wf *workflow.Workflow) *Handler {
	return &Handler{
		service:  svc,
		guard:    g,
		catalog:  cat,
		workflow: wf,
		now:      time.Now,
	}
}

// HandleCommand answers one command. An empty Text means nothing should be
// sent back.
func (h *Handler) HandleCommand(ctx context.Context, update tgbotapi.Update) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
	command := strings.ToLower(update.Message.Command())
	args := strings.Fields(update.Message.CommandArguments())
	msg.ParseMode = tgbotapi.ModeMarkdown

	switch command {
	case "start":
		msg.Text = "Welcome to Courtside! Use /help to see available commands."
	case "help":
		msg.ParseMode = ""
		msg.Text = msgHelp
	case "login":
		h.handleLogin(ctx, &msg, args)
	case "register":
		h.handleRegister(ctx, &msg, args)
	case "logout":
		h.handleLogout(ctx, &msg)
	case "status":
		h.handleStatus(ctx, &msg)
	case "teams":
		h.protected(ctx, &msg, func() { h.handleTeams(ctx, &msg, strings.Join(args, " ")) })
	case "home":
		h.protected(ctx, &msg, func() { h.handleHome(ctx, &msg, strings.Join(args, " ")) })
	case "away":
		h.protected(ctx, &msg, func() { h.handleAway(ctx, &msg, strings.Join(args, " ")) })
	case "clearhome":
		h.protected(ctx, &msg, func() { h.handleSelectionChange(&msg, h.workflow.ClearHome()) })
	case "clearaway":
		h.protected(ctx, &msg, func() { h.handleSelectionChange(&msg, h.workflow.ClearAway()) })
	case "predict":
		h.protected(ctx, &msg, func() { h.handlePredict(ctx, &msg) })
	case "reset":
		h.workflow.Reset()
		msg.Text = "Selection cleared. Choose a home team with /home <team>."
	case "history":
		h.protected(ctx, &msg, func() { h.handleHistory(ctx, &msg) })
	default:
		msg.Text = "Unknown command. Use /help to see available commands."
	}

	return msg
}

// failure renders err for a Markdown reply. Server messages are shown
// verbatim, so they are escaped.
func failure(err error) string {
	return "❌ " + service.Escape(service.Describe(err))
}

// ResetView drops everything tied to the signed-in user.
func (h *Handler) ResetView() {
	h.workflow.Reset()
	h.catalog.Reset()
}

// protected runs fn only with a stored session; otherwise the view is reset
// and the user is asked to log in.
func (h *Handler) protected(ctx context.Context, msg *tgbotapi.MessageConfig, fn func()) {
	if !h.guard.Gate(ctx, portal.RedirectorFunc(h.ResetView)) {
		msg.ParseMode = ""
		msg.Text = msgLoginPrompt
		return
	}
	fn()
}

func (h *Handler) handleLogin(ctx context.Context, msg *tgbotapi.MessageConfig, args []string) {
	if len(args) != 2 {
		msg.ParseMode = ""
		msg.Text = "Usage: /login <username> <password>"
		return
	}

	profile, err := h.service.Login(ctx, args[0], args[1])
	if err != nil {
		msg.Text = failure(err)
		return
	}
	h.ResetView()
	msg.Text = fmt.Sprintf("✅ Welcome, %s! Choose a home team with /home <team>.", service.Bold(profile.Username))
}

func (h *Handler) handleRegister(ctx context.Context, msg *tgbotapi.MessageConfig, args []string) {
	if len(args) != 4 {
		msg.ParseMode = ""
		msg.Text = "Usage: /register <username> <email> <password> <confirm>"
		return
	}

	err := h.service.Register(ctx, service.Registration{
		Username: args[0],
		Email:    args[1],
		Password: args[2],
		Confirm:  args[3],
	})
	if err != nil {
		msg.Text = failure(err)
		return
	}
	msg.ParseMode = ""
	msg.Text = "✅ Account created. Log in with /login <username> <password>."
}

func (h *Handler) handleLogout(ctx context.Context, msg *tgbotapi.MessageConfig) {
	if err := h.service.Logout(ctx); err != nil {
		slog.Error("Error logging out", "error", err)
		msg.Text = "Error logging out, please try again."
		return
	}
	h.ResetView()
	msg.Text = "👋 Logged out."
}

func (h *Handler) handleStatus(ctx context.Context, msg *tgbotapi.MessageConfig) {
	session, err := h.service.Session(ctx)
	if err != nil {
		msg.Text = "Error reading session: " + service.Escape(err.Error())
		return
	}

	var expiry time.Time
	if session.Authenticated() {
		if expiry, err = repository.TokenExpiry(session.Token); err != nil {
			slog.Debug("Token expiry unavailable", "error", err)
		}
	}
	msg.Text = service.FormatStatus(session, expiry, h.now())
}

func (h *Handler) handleTeams(ctx context.Context, msg *tgbotapi.MessageConfig, query string) {
	pool, err := h.catalog.Load(ctx)
	if err != nil {
		msg.Text = failure(err)
		return
	}

	// Once a home team is chosen the list serves the away picker.
	sel := h.workflow.Snapshot().Selection
	var exclude *models.Team
	if sel.Home != nil && sel.Away == nil {
		exclude = sel.Home
	}
	msg.Text = service.FormatTeams(catalog.Filter(pool, query, exclude))
}

func (h *Handler) resolve(ctx context.Context, query string) (models.Team, error) {
	pool, err := h.catalog.Load(ctx)
	if err != nil {
		return models.Team{}, err
	}
	return catalog.Resolve(pool, query)
}

func (h *Handler) handleHome(ctx context.Context, msg *tgbotapi.MessageConfig, query string) {
	if query == "" {
		msg.ParseMode = ""
		msg.Text = "Usage: /home <team>"
		return
	}
	team, err := h.resolve(ctx, query)
	if err != nil {
		msg.Text = failure(err)
		return
	}
	h.handleSelectionChange(msg, h.workflow.ChooseHome(team))
}

func (h *Handler) handleAway(ctx context.Context, msg *tgbotapi.MessageConfig, query string) {
	if query == "" {
		msg.ParseMode = ""
		msg.Text = "Usage: /away <team>"
		return
	}
	team, err := h.resolve(ctx, query)
	if err != nil {
		msg.Text = failure(err)
		return
	}
	h.handleSelectionChange(msg, h.workflow.ChooseAway(team))
}

func (h *Handler) handleSelectionChange(msg *tgbotapi.MessageConfig, err error) {
	if err != nil {
		msg.Text = failure(err)
		return
	}

	snap := h.workflow.Snapshot()
	var sb strings.Builder
	sb.WriteString(service.FormatSelection(snap.Selection))
	switch snap.State {
	case workflow.StateEmpty:
		sb.WriteString("\nChoose a home team with /home <team>.")
	case workflow.StateHomeChosen:
		sb.WriteString("\nChoose an away team with /away <team>.")
	case workflow.StateBothChosen:
		sb.WriteString("\nReady! Send /predict.")
	}
	msg.Text = sb.String()
}

func (h *Handler) handlePredict(ctx context.Context, msg *tgbotapi.MessageConfig) {
	outcome, err := h.workflow.Submit(ctx)
	if err != nil {
		msg.Text = failure(err)
		if portal.IsKind(err, portal.KindNetwork) || portal.IsKind(err, portal.KindUnknown) {
			msg.Text += "\nSend /predict to try again."
		}
		return
	}
	msg.Text = service.FormatOutcome(outcome) + "\nSend /reset for a new prediction."
}

func (h *Handler) handleHistory(ctx context.Context, msg *tgbotapi.MessageConfig) {
	history, err := h.service.History(ctx)
	if err != nil {
		msg.Text = failure(err)
		return
	}
	msg.Text = service.FormatHistory(history.Predictions, history.Total)
}

// Digest renders the history for the scheduled report. ok is false when
// nobody is logged in.
func (h *Handler) Digest(ctx context.Context) (text string, ok bool, err error) {
	if !h.guard.IsAuthorized(ctx) {
		return "", false, nil
	}
	history, err := h.service.History(ctx)
	if err != nil {
		return "", true, err
	}
	return "🗓 *Prediction digest*\n\n" + service.FormatHistory(history.Predictions, history.Total), true, nil
}
