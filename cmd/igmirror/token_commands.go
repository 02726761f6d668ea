package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igmirror/internal/logging"
	"igmirror/internal/preflight"
	"igmirror/internal/services/instagram"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or refresh the stored access token",
	}
	tokenCmd.AddCommand(newTokenShowCommand(ctx))
	tokenCmd.AddCommand(newTokenRefreshCommand(ctx))
	return tokenCmd
}

func newTokenShowCommand(ctx *commandContext) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored token and its age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "token show", func(runCtx context.Context, s *session) error {
				status := preflight.ProbeToken(runCtx, s.auth, time.Now())
				if status.Err != nil {
					return status.Err
				}
				out := cmd.OutOrStdout()
				if !status.Present {
					fmt.Fprintln(out, "No token linked (run igmirror auth url)")
					return nil
				}
				token := logging.MaskToken(status.Token)
				if reveal {
					token = status.Token
				}
				fmt.Fprintf(out, "Token:          %s\n", token)
				if status.HasTimestamp {
					fmt.Fprintf(out, "Last refreshed: %s (%d days ago)\n", status.LastRefreshed.Local().Format(time.DateTime), status.Days())
				} else {
					fmt.Fprintln(out, "Last refreshed: unknown")
				}
				fmt.Fprintf(out, "Needs refresh:  %s\n", yesNo(status.NeedsRefresh))
				fmt.Fprintf(out, "Store:          %s\n", s.cfg.TokenStore.Backend)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full token instead of a masked form")
	return cmd
}

func newTokenRefreshCommand(ctx *commandContext) *cobra.Command {
	var ifNeeded bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Trade the long-lived token for a fresh one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "token refresh", func(runCtx context.Context, s *session) error {
				out := cmd.OutOrStdout()
				if ifNeeded && !s.auth.NeedsTokenRefresh(runCtx) {
					fmt.Fprintf(out, "Token is younger than %d days; no refresh needed\n", instagram.RefreshAfterDays)
					return nil
				}
				if err := s.auth.RefreshToken(runCtx); err != nil {
					return fmt.Errorf("refresh token: %w", err)
				}
				fmt.Fprintln(out, "Token refreshed")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ifNeeded, "if-needed", false, "Only refresh when the token is due")
	return cmd
}
