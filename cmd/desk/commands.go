package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StrategyDesk/internal/report"
	"StrategyDesk/internal/scheduler"
	"StrategyDesk/internal/stubapi"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "desk",
		Short:         "Client-side view of a trading account and its strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default configs/config.yaml or $CONFIG_PATH)")

	// withApp opens a session for the duration of one command.
	withApp := func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd, a, args)
		}
	}

	root.AddCommand(
		newRegisterCmd(withApp),
		newLoginCmd(withApp),
		newLogoutCmd(withApp),
		newWhoamiCmd(withApp),
		newStrategiesCmd(withApp),
		newTransferCmd(withApp, "invest"),
		newTransferCmd(withApp, "withdraw"),
		newWatchCmd(withApp),
		newStubCmd(&cfgPath),
	)
	return root
}

type appRunner func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newLoginCmd(withApp appRunner) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the identity",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if password == "" {
				password = os.Getenv("DESK_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or DESK_PASSWORD) are required")
			}
			if err := a.user.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (id %d)\n", username, a.user.Identity().UserID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newRegisterCmd(withApp appRunner) *cobra.Command {
	var name, username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if password == "" {
				password = os.Getenv("DESK_PASSWORD")
			}
			if name == "" || username == "" || password == "" {
				return errors.New("--name, --username and --password (or DESK_PASSWORD) are required")
			}
			created, err := a.user.Register(cmd.Context(), name, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (id %d). Run login to sign in.\n", created.Username, created.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

// newTransferCmd builds the invest and withdraw commands.
func newTransferCmd(withApp appRunner, action string) *cobra.Command {
	var strategyID int
	var amount float64
	cmd := &cobra.Command{
		Use:   action,
		Short: strings.ToUpper(action[:1]) + action[1:] + " capital in a strategy",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if strategyID <= 0 || amount <= 0 {
				return errors.New("--strategy and --amount must be positive")
			}
			move := a.user.Invest
			if action == "withdraw" {
				move = a.user.Withdraw
			}
			if err := move(cmd.Context(), strategyID, amount); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.FormatProfile(a.user.Identity(), a.user.Profile()))
			fmt.Fprint(out, report.FormatStrategies("My strategies", a.user.Strategies()))
			return nil
		}),
	}
	cmd.Flags().IntVarP(&strategyID, "strategy", "s", 0, "strategy id")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "amount of capital")
	return cmd
}

func newLogoutCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored identity",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			a.user.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		}),
	}
}

func newWhoamiCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch and show the signed-in user's profile",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			a.user.FetchUser(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), report.FormatProfile(a.user.Identity(), a.user.Profile()))
			return nil
		}),
	}
}

func newStrategiesCmd(withApp appRunner) *cobra.Command {
	var mine bool
	var id int
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Fetch and list strategies",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case id > 0:
				st := a.strats.FetchStrategy(cmd.Context(), id)
				if st == nil {
					return fmt.Errorf("strategy %d not available", id)
				}
				fmt.Fprint(out, report.FormatStrategy(*st))
			case mine:
				a.user.FetchUserStrategies(cmd.Context())
				fmt.Fprint(out, report.FormatStrategies("My strategies", a.user.Strategies()))
			default:
				a.strats.FetchStrategies(cmd.Context())
				fmt.Fprint(out, report.FormatStrategies("Strategies", a.strats.Strategies()))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "list the signed-in user's holdings")
	cmd.Flags().IntVar(&id, "id", 0, "show a single strategy")
	return cmd
}

func newWatchCmd(withApp appRunner) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the stores on the configured schedule",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			return runWatch(cmd.Context(), a, cmd.OutOrStdout(), runOnStart, sigCh)
		}),
	}
	cmd.Flags().BoolVar(&runOnStart, "now", true, "refresh once immediately")
	return cmd
}

// runWatch refreshes the stores on the configured schedule until stop
// fires or ctx ends. The initial refresh completes before the scheduler
// starts, so nothing is still committing when the app is closed.
func runWatch(ctx context.Context, a *app, out io.Writer, runOnStart bool, stop <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewScheduler(ctx, a.user, a.strats, a.log)
	sched.OnRefresh = func() {
		fmt.Fprint(out, report.FormatStrategies("Strategies", a.strats.Strategies()))
	}
	if err := sched.RegisterAll(a.cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	if runOnStart {
		sched.RunNow()
	}
	sched.Start()
	defer sched.Stop()
	a.log.Info("watching", zap.String("cron", a.cfg.Schedule.RefreshCron))

	select {
	case <-stop:
		a.log.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	return nil
}

func newStubCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stub",
		Short: "Serve a seeded in-memory copy of the backend API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			api := stubapi.New(cfg.Stub.TokenSecret, logger)
			if _, err := stubapi.Seed(api); err != nil {
				return fmt.Errorf("seed stub: %w", err)
			}

			srv := &http.Server{
				Addr:         cfg.Stub.Addr,
				Handler:      api.Handler(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()
			logger.Info("stub API listening",
				zap.String("addr", cfg.Stub.Addr),
				zap.String("demo_user", stubapi.DemoUsername))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("serve stub: %w", err)
			case <-sigCh:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
