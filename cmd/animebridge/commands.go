package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/animebridge/internal/adapters/server"
	"github.com/hylla/animebridge/internal/adapters/server/common"
	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/config"
	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
	"github.com/hylla/animebridge/internal/tui"
	"github.com/spf13/cobra"
)

// runTUI opens the interactive pending-report view.
func runTUI(ctx context.Context, opts *rootOptions) error {
	// Runtime logs stay in the dev-file sink while the view is active.
	return opts.withSession("tui", true, func(s *session) error {
		m := tui.NewModel(
			s.svc,
			tui.WithLocale(s.locale),
			tui.WithPollInterval(s.cfg.PollIntervalDuration()),
			tui.WithClipboard(clipboardWriteAll),
		)
		s.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			s.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the list once and store a pending report when anything changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("sync", false, func(s *session) error {
				res, err := s.svc.Sync(cmd.Context(), app.SyncOptions{Force: force})
				if err != nil {
					return err
				}
				writeSyncResult(opts.stdout, res, s.locale)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the sync cooldown")
	return cmd
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("watch", false, func(s *session) error {
				every := interval
				if every <= 0 {
					every = s.cfg.PollIntervalDuration()
				}
				if every <= 0 {
					return errors.New("watch needs a positive --interval or sync.poll_interval")
				}
				return watchLoop(cmd.Context(), s, every, count, opts.stdout)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between syncs (default: sync.poll_interval)")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many cycles (0 runs until interrupted)")
	return cmd
}

// watchLoop syncs once immediately and then on every tick. Catalog failures
// are logged and retried; missing credentials end the loop.
func watchLoop(ctx context.Context, s *session, every time.Duration, count int, out io.Writer) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	s.logger.Info("watch loop started", "interval", every)
	for cycle := 1; ; cycle++ {
		res, err := s.svc.Sync(ctx, app.SyncOptions{})
		switch {
		case errors.Is(err, app.ErrCredentialsMissing):
			return err
		case ctx.Err() != nil:
			s.logger.Info("watch loop stopped")
			return nil
		case err != nil:
			s.logger.Warn("sync cycle failed", "cycle", cycle, "err", err)
		default:
			s.logger.Info("sync cycle complete", "cycle", cycle, "outcome", res.Outcome)
			if res.Outcome == app.SyncChanges {
				writeSyncResult(out, res, s.locale)
			}
		}
		if count > 0 && cycle >= count {
			return nil
		}
		select {
		case <-ctx.Done():
			s.logger.Info("watch loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// writeSyncResult prints one sync outcome.
func writeSyncResult(w io.Writer, res app.SyncResult, locale string) {
	switch res.Outcome {
	case app.SyncChanges:
		id := ""
		if res.Pending != nil {
			id = res.Pending.ID
		}
		_, _ = fmt.Fprintf(w, "pending report %s: %d new, %d updated\n", id, len(res.Report.NewEntries), len(res.Report.Updates))
		for _, line := range render.PlainLines(res.Report, locale) {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	case app.SyncInitialized:
		_, _ = fmt.Fprintln(w, "snapshot initialized; changes from now on will be reported")
	case app.SyncSkipped:
		_, _ = fmt.Fprintf(w, "sync skipped: cooldown active, retry in %s\n", res.RetryAfter.Round(time.Second))
	default:
		_, _ = fmt.Fprintln(w, "no changes")
	}
}

func newPendingCommand(opts *rootOptions) *cobra.Command {
	var (
		locale   string
		markdown bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show the pending report without consuming it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("pending", false, func(s *session) error {
				pending, ok, err := s.svc.Pending(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if !ok {
						return writeJSON(opts.stdout, nil)
					}
					return writeJSON(opts.stdout, pending)
				}
				if !ok {
					_, _ = fmt.Fprintln(opts.stdout, "no pending report")
					return nil
				}
				if strings.TrimSpace(locale) == "" {
					locale = pending.Locale
				}
				locale = render.ResolveLocale(locale, s.locale)
				_, _ = fmt.Fprintf(opts.stdout, "report %s (%s)\n", pending.ID, pending.CreatedAt.Local().Format(time.DateTime))
				if markdown {
					md := render.Summary(pending.Report, locale)
					_, _ = fmt.Fprintln(opts.stdout, renderMarkdown(md))
					return nil
				}
				for _, line := range render.PlainLines(pending.Report, locale) {
					_, _ = fmt.Fprintln(opts.stdout, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "output locale (en, tr); default is the report's locale")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the markdown summary")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the pending report as JSON")
	return cmd
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = "- " + line
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := renderer.Render(strings.Join(lines, "\n"))
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	var (
		reportID string
		copyOut  bool
	)
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Commit the pending report and print its assistant prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("consume", false, func(s *session) error {
				id := strings.TrimSpace(reportID)
				if id == "" {
					pending, ok, err := s.svc.Pending(cmd.Context())
					if err != nil {
						return err
					}
					if !ok {
						return app.ErrNoPendingReport
					}
					id = pending.ID
				}
				res, err := s.svc.Consume(cmd.Context(), id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(opts.stdout, res.Prompt)
				if copyOut {
					if err := clipboardWriteAll(res.Prompt); err != nil {
						s.logger.Warn("clipboard copy failed", "err", err)
						return fmt.Errorf("report %s consumed but clipboard copy failed: %w", id, err)
					}
					_, _ = fmt.Fprintln(opts.stderr, "prompt copied to clipboard")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reportID, "id", "", "pending report id to commit (default: the current one)")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "also copy the prompt to the clipboard")
	return cmd
}

func newContextCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the profile context prompt from the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("context", false, func(s *session) error {
				text, err := s.svc.ContextPrompt(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(opts.stdout, text)
				return nil
			})
		},
	}
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the plan-to-watch recommendation prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return opts.withSession("plan", false, func(s *session) error {
				text, err := s.svc.PlanToWatchPrompt(cmd.Context(), limit)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(opts.stdout, text)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum titles to include (default: catalog.plan_limit)")
	return cmd
}

func newRespondCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "respond <message...>",
		Short: "Resolve a chat message into the text handed to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message is required")
			}
			return opts.withSession("respond", false, func(s *session) error {
				text, err := s.svc.Respond(cmd.Context(), message)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(opts.stdout, text)
				return nil
			})
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List consumed reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return opts.withSession("history", false, func(s *session) error {
				reports, err := s.svc.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(opts.stdout, reports)
				}
				if len(reports) == 0 {
					_, _ = fmt.Fprintln(opts.stdout, "no consumed reports")
					return nil
				}
				_, _ = fmt.Fprintln(opts.stdout, historyTable(reports))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum reports to list (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

// historyTable renders consumed reports as a bordered table.
func historyTable(reports []domain.ConsumedReport) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("Report", "Consumed", "New", "Updated").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range reports {
		t.Row(
			r.ID,
			r.ConsumedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.NewEntries),
			strconv.Itoa(r.Updates),
		)
	}
	return t.String()
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the dirty badge and sync bookkeeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("status", false, func(s *session) error {
				st, err := s.svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(opts.stdout, st)
				}
				_, _ = fmt.Fprintf(opts.stdout, "dirty: %t\n", st.Dirty)
				if st.PendingID != "" {
					_, _ = fmt.Fprintf(opts.stdout, "pending: %s\n", st.PendingID)
				}
				_, _ = fmt.Fprintf(opts.stdout, "snapshot_size: %d\n", st.SnapshotSize)
				_, _ = fmt.Fprintf(opts.stdout, "last_snapshot: %s\n", formatOptionalTime(st.LastSnapshotDate))
				_, _ = fmt.Fprintf(opts.stdout, "last_synced: %s\n", formatOptionalTime(st.LastSynced))
				_, _ = fmt.Fprintf(opts.stdout, "credentials: %t\n", s.cfg.HasCredentials())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	return cmd
}

// formatOptionalTime renders ts in local time, or "never".
func formatOptionalTime(ts *time.Time) string {
	if ts == nil {
		return "never"
	}
	return ts.Local().Format(time.RFC3339)
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the committed snapshot, cutoff, and pending report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset discards the committed snapshot; pass --yes to confirm")
			}
			return opts.withSession("reset", false, func(s *session) error {
				if err := s.svc.Reset(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(opts.stdout, "state reset; the next sync starts a new baseline")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var bind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("serve", false, func(s *session) error {
				cfg := server.Config{
					HTTPBind:      firstNonEmpty(bind, s.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, s.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, s.cfg.Server.MCPEndpoint),
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				s.logger.Info("serve starting", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				err := server.Run(cmd.Context(), cfg, server.Dependencies{
					Service: common.NewAppServiceAdapter(s.svc),
					Ready:   s.repo,
				})
				if err != nil {
					s.logger.Error("serve stopped with error", "err", err)
					return err
				}
				s.logger.Info("serve stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (default: server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API mount path (default: server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP mount path (default: server.mcp_endpoint)")
	return cmd
}

func newConfigureCommand(opts *rootOptions) *cobra.Command {
	var username, clientID string
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store catalog credentials in the config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if strings.TrimSpace(username) == "" && strings.TrimSpace(clientID) == "" {
				return errors.New("pass --username and/or --client-id")
			}
			res, err := opts.resolve()
			if err != nil {
				return err
			}
			if err := config.UpsertCatalog(res.configPath, username, clientID); err != nil {
				return fmt.Errorf("update config %q: %w", res.configPath, err)
			}
			_, _ = fmt.Fprintf(opts.stdout, "catalog credentials saved to %s\n", res.configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "catalog user name")
	cmd.Flags().StringVar(&clientID, "client-id", "", "catalog API client id")
	return cmd
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and log locations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			res, err := opts.resolve()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(opts.stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(opts.stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(opts.stdout, "config: %s\n", res.configPath)
			_, _ = fmt.Fprintf(opts.stdout, "data_dir: %s\n", res.paths.DataDir)
			_, _ = fmt.Fprintf(opts.stdout, "db: %s\n", res.cfg.Database.Path)
			_, _ = fmt.Fprintf(opts.stdout, "log_dir: %s\n", res.paths.LogDir)
			return nil
		},
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// firstNonEmpty returns the first value with non-space content.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
