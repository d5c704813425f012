// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/askrod/internal/reveal"
	"github.com/jeranaias/askrod/internal/ui/components"
	"github.com/jeranaias/askrod/internal/ui/styles"
)

// errNoQuestion is returned when ask gets only whitespace.
var errNoQuestion = errors.New("no question given")

func newAskCmd(a *app) *cobra.Command {
	var (
		noReveal  bool
		noSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Long: `Sends a single question and prints the answer with its sources.

On a terminal the answer is typed out the same way the interactive view
shows it; use --no-reveal to print it at once.

Example:
  askrod ask "Where do I eat on campus?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			ctrl := a.controller()
			defer ctrl.Close()

			out, err := ctrl.Submit(cmd.Context(), question)
			if err != nil {
				return reported(ctrl, err)
			}
			if out.Ignored {
				return errNoQuestion
			}

			w := cmd.OutOrStdout()
			if noReveal || !isTerminal(w) {
				// Stop the typing effect; the full text is printed below.
				ctrl.Reveal().Cancel()
				fmt.Fprintln(w, out.Turn.Answer)
			} else {
				printReveal(w, out.Reveal)
			}

			if !noSources && a.cfg.UI.ShowSources && out.Turn.HasSources() {
				theme := styles.NewTheme(a.cfg.UI.Theme)
				fmt.Fprintln(w)
				fmt.Fprintln(w, components.RenderSources(theme, out.Turn.Sources, terminalWidth(w)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReveal, "no-reveal", false, "print the answer at once")
	cmd.Flags().BoolVar(&noSources, "no-sources", false, "omit the sources list")
	return cmd
}

// printReveal writes each newly revealed part of the answer as it arrives.
func printReveal(w io.Writer, ch <-chan reveal.Snapshot) {
	printed := 0
	for snap := range ch {
		runes := []rune(snap.Text)
		if len(runes) > printed {
			fmt.Fprint(w, string(runes[printed:]))
			printed = len(runes)
		}
	}
	fmt.Fprintln(w)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns w's column count, or 80 when it is not a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}
