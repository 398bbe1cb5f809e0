package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"runcoach/internal/chat"
	"runcoach/internal/collections"
	"runcoach/internal/presenter"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat session with the coach",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			client := a.remoteClient()

			tracker := a.staleTracker(ctx)
			cache := collections.NewCache(cfg.UserID, client, tracker, a.logger)
			inv := collections.NewInvalidator(cfg.UserID, tracker,
				collections.WithRecheckDelay(cfg.WorkoutsRecheckDelay),
				collections.WithRefresher(cache),
				collections.WithLogger(a.logger),
			)

			bridge := &programBridge{}
			session, err := chat.Open(a.viewer(), client, chat.Deps{
				Signals:       inv,
				Notifier:      chat.NotifierFunc(func(n chat.Notice) { bridge.send(noticeMsg(n)) }),
				Redirector:    chat.RedirectorFunc(func() { bridge.send(redirectMsg{}) }),
				Input:         chat.InputClearerFunc(func() { bridge.send(clearInputMsg{}) }),
				Logger:        a.logger,
				PollInterval:  cfg.PollInterval,
				RedirectDelay: cfg.AuthRedirectDelay,
			})
			if errors.Is(err, chat.ErrViewerNotReady) {
				return errors.New("not logged in: set COACH_TOKEN and COACH_USER_ID")
			}
			if err != nil {
				return err
			}
			defer session.Close()

			scheduler := presenter.NewScheduler(
				presenter.WithTyping(cfg.TypingPerRune, cfg.TypingMin, cfg.TypingMax),
				presenter.WithLogger(a.logger),
			)
			defer scheduler.Stop()

			model := newChatModel(ctx, session, scheduler)
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
			bridge.set(program)

			go func() {
				if err := session.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
					a.logger.Warn("history polling stopped", zap.Error(err))
				}
			}()

			final, err := program.Run()
			session.Close()
			inv.Wait()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			if m, ok := final.(chatModel); ok && m.expired {
				fmt.Fprintln(cmd.OutOrStdout(), "Session expired. Please login again to continue chatting.")
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.remoteClient().FetchHistory(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(history.Messages) == 0 {
				fmt.Fprintln(out, chat.PlaceholderWelcome)
				return nil
			}
			renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			for _, m := range history.Messages {
				if m.IsUserMessage {
					fmt.Fprintln(out, userLabelStyle.Render("You")+" "+m.DisplayContent())
					continue
				}
				fmt.Fprintln(out, coachLabelStyle.Render("Coach"))
				if asHTML {
					fmt.Fprintln(out, presenter.Format(m.DisplayContent()))
					continue
				}
				rendered, err := renderer.Render(m.DisplayContent())
				if err != nil {
					rendered = m.DisplayContent()
				}
				fmt.Fprint(out, rendered)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print coach messages as formatted HTML")
	return cmd
}

func newWorkoutsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "workouts",
		Short: "Show the current training plan and workouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache := collections.NewCache(a.cfg.UserID, a.remoteClient(), a.staleTracker(ctx), a.logger)

			plan, err := cache.TrainingPlan(ctx)
			if err != nil {
				return err
			}
			workouts, err := cache.Workouts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plan != nil {
				fmt.Fprintln(out, titleStyle.Render(plan.Title))
				fmt.Fprintf(out, "Week %d of %d\n", plan.CurrentWeek, plan.DurationWeeks)
				if plan.Description != "" {
					fmt.Fprintln(out, plan.Description)
				}
				fmt.Fprintln(out)
			}
			if len(workouts) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No workouts yet. Ask your coach to plan your week."))
				return nil
			}
			for _, w := range workouts {
				check := "[ ]"
				if w.IsComplete {
					check = "[x]"
				}
				fmt.Fprintf(out, "%s %s  %s  %s\n", check, dayStyle.Render(w.DayOfWeek), w.Title, mutedStyle.Render(w.Intensity))
				if w.Description != "" {
					fmt.Fprintln(out, "    "+w.Description)
				}
				for _, d := range w.Details {
					fmt.Fprintln(out, "    - "+strings.TrimSpace(d))
				}
			}
			return nil
		},
	}
}
