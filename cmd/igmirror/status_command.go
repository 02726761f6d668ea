package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igmirror/internal/mediacache"
	"igmirror/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token state and readiness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "status", func(runCtx context.Context, s *session) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string

				lines = append(lines, renderSectionHeader("Configuration", colorize)...)
				configDetail := ctx.configPath
				if !ctx.configExists {
					configDetail += " (not found; defaults in use)"
				}
				lines = append(lines,
					renderStatusLine("Config file", statusInfo, configDetail, colorize),
					renderStatusLine("Token store", statusInfo, s.cfg.TokenStore.Backend, colorize),
				)

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Token", colorize)...)
				tokenStatus := preflight.ProbeToken(runCtx, s.auth, time.Now())
				tokenKind := statusOK
				switch {
				case tokenStatus.Err != nil || !tokenStatus.Present:
					tokenKind = statusError
				case tokenStatus.NeedsRefresh:
					tokenKind = statusWarn
				}
				lines = append(lines, renderStatusLine("Access token", tokenKind, tokenStatus.Detail(), colorize))

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				results := preflight.RunAll(runCtx, s.cfg, s.httpClient, tokenStatus.Token)
				for _, result := range results {
					lines = append(lines, renderResult(result, colorize))
				}
				lines = append(lines, renderStatusLine("Media cache", statusInfo, cacheSummary(s.cfg.Paths.CacheDir), colorize))
				if failed := preflight.Failed(results); len(failed) > 0 {
					lines = append(lines, "", fmt.Sprintf("%d of %d checks failed", len(failed), len(results)))
				}

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}

func cacheSummary(dir string) string {
	cache, err := mediacache.New(dir)
	if err != nil {
		return err.Error()
	}
	stats, err := cache.Stats()
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%d files, %s", stats.Files, formatBytes(stats.Bytes))
}
