// askrod - A terminal front-end for the campus question-answering service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/config"
	"github.com/jeranaias/askrod/internal/logging"
	"github.com/jeranaias/askrod/internal/session"
	"github.com/jeranaias/askrod/internal/ui/chat"
	"github.com/jeranaias/askrod/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	// Global flags
	configPath string
	backendURL string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		errorLabel.Fprint(os.Stderr, "Error:")
		fmt.Fprintln(os.Stderr, "", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "askrod",
		Short: "Ask the campus assistant questions from your terminal",
		Long: `askrod sends natural-language questions to the answering service and
shows each answer as it is typed out, with the sources it cited.

Run without arguments to start the interactive interface.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ~/.askrod/config.toml)")
	root.PersistentFlags().StringVarP(&a.backendURL, "backend", "b", "", "backend base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newAskCmd(a),
		newUploadCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(config.DotEnvFiles...); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.backendURL != "" {
		cfg.Backend.URL = a.backendURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --backend: %w", err)
		}
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Path:       cfg.LogPath(),
		Level:      level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		// The interactive UI owns the terminal.
		Console: a.verbose && cmd.HasParent(),
	})
	if err != nil {
		return err
	}
	a.logger = logger.With(zap.String("version", Version))
	return nil
}

// userError carries the message the controller produced for a failure, so
// main prints it once instead of the raw error.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Unwrap() error { return e.err }

// reported pairs err with the controller's message for it, if any.
func reported(ctrl *session.Controller, err error) error {
	if msg := ctrl.LastError(); msg != "" {
		return &userError{msg: msg, err: err}
	}
	return err
}

// controller builds a session controller from the loaded configuration.
func (a *app) controller() *session.Controller {
	return session.NewController(session.ConfigFrom(a.cfg, a.logger))
}

// runInteractive starts the Bubble Tea interface.
func (a *app) runInteractive(ctx context.Context) error {
	ctrl := a.controller()
	defer ctrl.Close()

	m := chat.New(ctrl, styles.NewTheme(a.cfg.UI.Theme),
		chat.WithLogger(a.logger.Named("ui")),
		chat.WithShowSources(a.cfg.UI.ShowSources),
		chat.WithExportDir(a.cfg.UI.ExportDir),
		chat.WithContext(ctx),
	)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	a.logger.Info("starting interactive session", zap.String("backend", a.cfg.Backend.URL))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running askrod: %w", err)
	}
	return nil
}
