package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"igmirror/internal/logging"
	"igmirror/internal/preflight"
	"igmirror/internal/services"
	"igmirror/internal/services/instagram"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Mirror the account's media",
	}
	mediaCmd.AddCommand(newMediaFetchCommand(ctx))
	return mediaCmd
}

func newMediaFetchCommand(ctx *commandContext) *cobra.Command {
	var count int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List recent media and download anything not cached yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "media fetch", func(runCtx context.Context, s *session) error {
				if !cmd.Flags().Changed("count") {
					count = s.cfg.Media.DefaultCount
				}
				if check := preflight.CheckDirectoryAccess("Cache directory", s.cfg.Paths.CacheDir); !check.Passed {
					return services.Wrap(services.ErrConfiguration, "media", "fetch", check.Detail, nil)
				}

				token, err := ensureFreshToken(runCtx, s)
				if err != nil {
					return err
				}

				records, err := s.mediaRetriever(token).GetMedia(runCtx, count)
				if err != nil {
					return fmt.Errorf("fetch media: %w", err)
				}

				if asJSON {
					return writeJSON(cmd, records)
				}
				printMediaTable(cmd, records, s.cfg.Paths.CacheDir)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of media items to fetch (default from media.default_count)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

// ensureFreshToken returns the stored token, refreshing it first when due. A
// failed refresh is logged and the existing token is used.
func ensureFreshToken(ctx context.Context, s *session) (string, error) {
	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", services.Wrap(services.ErrUnauthorized, "instagram", "media fetch", "no linked account", instagram.ErrNotAuthenticated)
	}
	if !s.auth.NeedsTokenRefresh(ctx) {
		return token, nil
	}

	if err := s.auth.RefreshToken(ctx); err != nil {
		logging.WarnWithContext(ctx, s.logger, "token refresh failed; continuing with current token", "token_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "token may expire soon"),
		)
		return token, nil
	}
	return s.auth.AccessToken(ctx)
}

func printMediaTable(cmd *cobra.Command, records []instagram.MediaRecord, cacheDir string) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No media found")
		return
	}

	rows := make([][]string, 0, len(records))
	cached := 0
	for _, rec := range records {
		size := "-"
		if info, err := os.Stat(rec.Filename); err == nil && info.Mode().IsRegular() {
			size = formatBytes(info.Size())
			cached++
		}
		rows = append(rows, []string{rec.ID, displayMediaType(rec.Type), filepath.Base(rec.Filename), size})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Type", "File", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "%d of %d items cached in %s\n", cached, len(records), cacheDir)
}
