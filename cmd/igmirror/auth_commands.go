package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"igmirror/internal/logging"
	"igmirror/internal/services"
	"igmirror/internal/services/instagram"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Link an Instagram account",
	}
	authCmd.AddCommand(newAuthURLCommand(ctx))
	authCmd.AddCommand(newAuthExchangeCommand(ctx))
	return authCmd
}

func newAuthURLCommand(ctx *commandContext) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL to open in a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			creds := credentialsFrom(cfg)
			if strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.RedirectURI) == "" {
				return services.Wrap(services.ErrConfiguration, "instagram", "auth url", "client_id and redirect_uri are required", nil)
			}

			state = strings.TrimSpace(state)
			if state == "" {
				state = uuid.NewString()
			}
			ctrl := instagram.NewAuthController(creds, nil, instagram.WithOAuthBaseURL(cfg.Instagram.OAuthBaseURL))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ctrl.AuthorizationURL(state))
			fmt.Fprintf(out, "State: %s\n", state)
			fmt.Fprintln(out, "After approving, run: igmirror auth exchange <code>")
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Opaque state echoed back to the redirect URI (random when empty)")
	return cmd
}

func newAuthExchangeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for a long-lived token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := normalizeCode(args[0])
			return ctx.withSession(cmd, "auth exchange", func(runCtx context.Context, s *session) error {
				if err := s.auth.Authenticate(runCtx, code); err != nil {
					logging.ErrorWithContext(runCtx, s.logger, "authorization code exchange failed", "token_authenticate_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "authorization codes are single use; request a new one with igmirror auth url"),
					)
					return fmt.Errorf("authenticate: %w", err)
				}
				token, err := s.auth.AccessToken(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Instagram account linked")
				fmt.Fprintf(out, "Token: %s (stored in %s backend)\n", logging.MaskToken(token), s.cfg.TokenStore.Backend)
				return nil
			})
		},
	}
}

// normalizeCode strips the "#_" suffix Instagram appends to redirect codes.
func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	return strings.TrimSuffix(code, "#_")
}
