package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CacheList prints every cached snapshot, newest first.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store(ctx)
	if err != nil {
		return err
	}

	infos, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(infos, true)
	}

	if len(infos) == 0 {
		return r.writePlain("No cached snapshots (%s)\n", store.Backend())
	}

	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Username", "User ID", "Entries", "Version", "Fetched")
	for _, info := range infos {
		version := fmt.Sprint(info.Version)
		if info.Stale(r.config.Cache.Version) {
			version += " (stale)"
		}
		t.Row(
			"@"+info.Username,
			fmt.Sprint(info.UserID),
			humanize.Comma(int64(info.EntryCount)),
			version,
			humanize.RelTime(info.FetchTimestamp, r.now(), "ago", "from now"),
		)
	}

	r.writePlain("%s\n", t.String())
	return r.writePlain("%d cached (%s)\n", len(infos), store.Backend())
}

// CacheShow prints the list summary of one cached snapshot without fetching.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	username, err := requireUsername(cmd)
	if err != nil {
		return err
	}

	store, err := r.Store(ctx)
	if err != nil {
		return err
	}

	snapshot, err := store.Get(ctx, username)
	if err != nil {
		return err
	}

	r.writeSummary(snapshot)
	r.writePlain("Snapshot %s, version %d", snapshot.ID, snapshot.Version)
	if snapshot.Version != r.config.Cache.Version {
		r.writePlain(" (stale, current is %d)", r.config.Cache.Version)
	}
	return r.writePlain("\n")
}

// CacheClear deletes one user's snapshot, or all of them when no username is given.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store(ctx)
	if err != nil {
		return err
	}

	username := strings.TrimSpace(cmd.StringArg("username"))
	if username == "" {
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		r.logger.Info("cache cleared", "backend", store.Backend())
		return r.writePlain("✓ Cleared every cached snapshot\n")
	}

	if err := store.Delete(ctx, username); err != nil {
		return fmt.Errorf("failed to delete @%s: %w", username, err)
	}
	r.logger.Info("snapshot deleted", "username", username, "backend", store.Backend())
	return r.writePlain("✓ Deleted cached snapshot for @%s\n", username)
}

