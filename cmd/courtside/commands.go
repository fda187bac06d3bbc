package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/catalog"
	"github.com/omarshaarawi/courtside/internal/repository"
	"github.com/omarshaarawi/courtside/internal/service"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in")

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "courtside",
		Short:         "NBA matchup predictions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().BoolVar(&a.plain, "plain", false, "print raw Markdown instead of styled output")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newTeamsCmd(a),
		newPredictCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// userError prints the user-facing description and returns err so the exit
// status reflects the failure.
func (a *app) userError(err error) error {
	fmt.Fprintln(a.errOut, "✗ "+service.Describe(err))
	return err
}

// gate is checked before every command that needs a session.
func (a *app) gate(cmd *cobra.Command) error {
	hint := portal.RedirectorFunc(func() {
		fmt.Fprintln(a.errOut, "You are not logged in. Run `courtside login <username>` first.")
	})
	if a.guard.Gate(cmd.Context(), hint) {
		return nil
	}
	return errNotLoggedIn
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = prompt(cmd.InOrStdin(), a.errOut, "Password: "); err != nil {
					return err
				}
			}

			profile, err := a.service.Login(cmd.Context(), args[0], password)
			if err != nil {
				return a.userError(err)
			}
			a.catalog.Reset()
			a.workflow.Reset()
			fmt.Fprintf(a.out, "Logged in as %s.\n", profile.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if password == "" {
				if password, err = prompt(in, a.errOut, "Password: "); err != nil {
					return err
				}
			}
			if confirm == "" {
				if confirm, err = prompt(in, a.errOut, "Confirm password: "); err != nil {
					return err
				}
			}

			err = a.service.Register(cmd.Context(), service.Registration{
				Username: args[0],
				Email:    args[1],
				Password: password,
				Confirm:  confirm,
			})
			if err != nil {
				return a.userError(err)
			}
			fmt.Fprintf(a.out, "Account created. Run `courtside login %s` to start.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.service.Logout(cmd.Context()); err != nil {
				return err
			}
			a.catalog.Reset()
			a.workflow.Reset()
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.service.Session(cmd.Context())
			if err != nil {
				return err
			}

			var expiry time.Time
			if session.Authenticated() {
				// Opaque tokens simply have no expiry to show.
				expiry, _ = repository.TokenExpiry(session.Token)
			}
			return a.renderMarkdown(service.FormatStatus(session, expiry, time.Now()))
		},
	}
}

func newTeamsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "teams [query]",
		Short: "List or search teams",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.gate(cmd); err != nil {
				return err
			}
			pool, err := a.catalog.Load(cmd.Context())
			if err != nil {
				return a.userError(err)
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return a.renderMarkdown(service.FormatTeams(catalog.Filter(pool, query, nil)))
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "predict <home> <away>",
		Short:   "Predict the winner of a matchup",
		Example: "  courtside predict lakers celtics\n  courtside predict LAL BOS",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.gate(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := a.catalog.Load(ctx)
			if err != nil {
				return a.userError(err)
			}
			home, err := catalog.Resolve(pool, args[0])
			if err != nil {
				return a.userError(err)
			}
			away, err := catalog.Resolve(pool, args[1])
			if err != nil {
				return a.userError(err)
			}

			if err := a.workflow.ChooseHome(home); err != nil {
				return a.userError(err)
			}
			if err := a.workflow.ChooseAway(away); err != nil {
				return a.userError(err)
			}

			fmt.Fprintf(a.errOut, "Predicting %s vs %s...\n", home.DisplayName, away.DisplayName)
			outcome, err := a.workflow.Submit(ctx)
			if err != nil {
				return a.userError(err)
			}

			if a.plain {
				fmt.Fprint(a.out, service.FormatOutcome(outcome))
				return nil
			}
			fmt.Fprintln(a.out, renderOutcome(outcome))
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your prediction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.gate(cmd); err != nil {
				return err
			}
			history, err := a.service.History(cmd.Context())
			if err != nil {
				return a.userError(err)
			}
			return a.renderMarkdown(service.FormatHistory(history.Predictions, history.Total))
		},
	}
}
