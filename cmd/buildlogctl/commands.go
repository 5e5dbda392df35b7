package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/buildlog-app/buildlog/internal/app/schema"
	"github.com/buildlog-app/buildlog/internal/service/ai"
	"github.com/buildlog-app/buildlog/internal/service/analytics"
	"github.com/buildlog-app/buildlog/internal/service/auth"
	"github.com/buildlog-app/buildlog/internal/service/buildlog"
	"github.com/buildlog-app/buildlog/internal/service/export"
	"github.com/buildlog-app/buildlog/internal/service/project"
)

const commandTimeout = 30 * time.Second

type envRunner func(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error

func loginCmd(withEnv envRunner) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			secret := password
			if secret == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				secret = string(raw)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			svc := auth.New(e.gw, e.log, e.cfg.SecretKey, e.cfg.SessionTTL)
			session, err := svc.Login(ctx, email, secret)
			if err != nil {
				return err
			}
			path, err := statePath()
			if err != nil {
				return err
			}
			state := cliState{
				UserID:  session.User.ID,
				Email:   session.User.Email,
				Name:    session.User.Name,
				Session: session.Secret,
			}
			if err := saveState(path, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", session.User.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func logoutCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			path, err := statePath()
			if err != nil {
				return err
			}
			state, err := loadState(path)
			if err != nil {
				return err
			}
			if state.loggedIn() {
				ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
				defer cancel()
				auth.New(e.gw, e.log, e.cfg.SecretKey, e.cfg.SessionTTL).Logout(ctx, state.Session)
			}
			if err := clearState(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func projectsCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			state, err := requireLogin()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			projects, err := project.New(e.gw, e.log).List(ctx, state.UserID)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no projects yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tUPDATED")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.UpdatedAt.Format(export.TimeLayout))
			}
			return w.Flush()
		}),
	}
}

func exportCmd(withEnv envRunner) *cobra.Command {
	var summary, noLogs bool
	var output string
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Render a project as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			state, err := requireLogin()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			p, err := project.New(e.gw, e.log).GetOwned(ctx, state.UserID, args[0])
			if err != nil {
				if errors.Is(err, project.ErrForbidden) {
					return fmt.Errorf("project %s not found", args[0])
				}
				return err
			}
			logs, err := buildlog.New(e.gw, nil, e.log).List(ctx, p.ID, false)
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.IncludeLogs = !noLogs
			opts.FileURL = e.gw.FileURL
			opts.Location = e.cfg.Location()
			if summary {
				gen := newAI(e).EnhanceMarkdownExport(ctx, p.Name, p.Description, export.ProgressSummary(logs))
				if gen.OK() {
					opts.Summary = gen.Text
				} else {
					e.log.Warn("summary unavailable", "status", gen.Status, "reason", gen.Reason)
				}
			}
			doc := export.Render(*p, logs, opts)
			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Prepend an AI generated summary")
	cmd.Flags().BoolVar(&noLogs, "no-logs", false, "Leave out the build log section")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func statsCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show headline analytics",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			state, err := requireLogin()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			svc := analytics.New(e.gw, e.gw, e.log, analytics.WithLocation(e.cfg.Location()))
			report := svc.Complete(ctx, state.UserID)
			if report.Degraded {
				return fmt.Errorf("analytics unavailable: %s", report.Reason)
			}
			printStats(cmd, report)
			return nil
		}),
	}
}

func printStats(cmd *cobra.Command, report analytics.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Projects:        %d\n", report.Overview.TotalProjects)
	fmt.Fprintf(out, "Build logs:      %d\n", report.Overview.TotalLogs)
	fmt.Fprintf(out, "Active projects: %d\n", report.Overview.ActiveProjects)
	fmt.Fprintf(out, "Logs this week:  %d\n", report.Overview.WeeklyLogs)
	if len(report.LogTypes.Labels) > 0 {
		fmt.Fprintln(out, "\nBy type:")
		for i, label := range report.LogTypes.Labels {
			fmt.Fprintf(out, "  %-12s %d\n", label, report.LogTypes.Values[i])
		}
	}
	if len(report.StatusDistribution.Labels) > 0 {
		fmt.Fprintln(out, "\nBy status:")
		for i, label := range report.StatusDistribution.Labels {
			fmt.Fprintf(out, "  %-12s %d\n", label, report.StatusDistribution.Values[i])
		}
	}
}

func setupCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the database, collections and storage bucket",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			runner, err := schema.New(e.gw, schema.Collections{
				Projects:  e.cfg.ProjectsCollectionID,
				BuildLogs: e.cfg.BuildLogsCollection,
			}, e.cfg.UploadMaxBytes, e.log)
			if err != nil {
				return err
			}
			res, err := runner.Ensure(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready: %d created, %d already present\n", res.Created, res.Existing)
			return nil
		}),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(buildVersion))
		},
	}
}

func newAI(e *env) ai.Service {
	var completer ai.Completer
	switch e.cfg.AIProvider {
	case "template":
		completer = ai.TemplateCompleter{}
	default:
		if c := ai.NewOpenAI(ai.OpenAIConfig{
			APIKey:  e.cfg.OpenAIAPIKey,
			Model:   e.cfg.OpenAIModel,
			BaseURL: e.cfg.OpenAIBaseURL,
			Timeout: e.cfg.OpenAITimeout,
		}); c != nil {
			completer = c
		}
	}
	return ai.New(completer, e.cfg.AIAvailable(), e.log)
}
