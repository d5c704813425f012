// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/upload"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		category      string
		user          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents to the knowledge base",
		Long: `Logs in and uploads one or more documents under a category.

The password is prompted for without echo, or read from stdin with
--password-stdin for scripts.

Example:
  askrod upload --category Dining --user admin menu.pdf hours.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if category == "" {
				return upload.ErrMissingCategory
			}
			if user == "" {
				return fmt.Errorf("--user is required")
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return err
			}

			ctrl := a.controller()
			defer ctrl.Close()

			if _, err := ctrl.Login(cmd.Context(), user, password); err != nil {
				return reported(ctrl, err)
			}

			files, closeAll, err := upload.OpenFiles(args)
			defer func() {
				if cerr := closeAll(); cerr != nil {
					a.logger.Warn("failed to close upload files", zap.Error(cerr))
				}
			}()
			if err != nil {
				return err
			}

			res, err := ctrl.Upload(cmd.Context(), category, files)
			if err != nil {
				return reported(ctrl, err)
			}

			successColor.Fprintf(cmd.OutOrStdout(), "%s (%d file(s), category %q)\n", res.Message, res.Files, category)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category to file the documents under (required)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "username to log in with (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}
