package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/mustx/internal/formatter"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	tv "github.com/desertthunder/mustx/internal/table"
	"github.com/desertthunder/mustx/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Output formats accepted by the lists command.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func requireUsername(cmd *cli.Command) (string, error) {
	username := strings.TrimSpace(cmd.StringArg("username"))
	if username == "" {
		return "", fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	return username, nil
}

// load returns the user's snapshot, printing progress messages unless quiet is set.
func (r *Runner) load(ctx context.Context, username string, update, quiet bool) (*models.Snapshot, error) {
	loader, err := r.Loader(ctx)
	if err != nil {
		return nil, err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if !quiet {
				r.writePlain("%s\n", u.Message)
			}
		}
	}()

	snapshot, err := loader.Load(ctx, username, update, progress)
	close(progress)
	<-done

	if err != nil {
		return nil, fmt.Errorf("failed to load @%s: %w", username, err)
	}
	return snapshot, nil
}

// Fetch loads a user's lists (from the cache unless --update is set) and prints a summary.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	username, err := requireUsername(cmd)
	if err != nil {
		return err
	}

	snapshot, err := r.load(ctx, username, cmd.Bool("update"), cmd.Bool("quiet"))
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writeSummary(snapshot)
	return nil
}

func (r *Runner) writeSummary(snapshot *models.Snapshot) {
	r.writePlainHeader("@" + snapshot.Username)
	for _, d := range snapshot.Descriptors() {
		r.writePlain("  %-10s %6d\n", d.Name, d.EntryCount)
	}
	r.writePlain("Fetched %s (%s)\n",
		snapshot.FetchTimestamp.Local().Format("2006-01-02 15:04:05"),
		humanize.RelTime(snapshot.FetchTimestamp, r.now(), "ago", "from now"))
}

// Lists prints one list, filtered and sorted like the table view.
func (r *Runner) Lists(ctx context.Context, cmd *cli.Command) error {
	username, err := requireUsername(cmd)
	if err != nil {
		return err
	}

	key, err := models.ParseListKey(cmd.String("list"))
	if err != nil {
		return fmt.Errorf("%w: --list: %v", shared.ErrInvalidFlag, err)
	}

	var col tv.Column
	if s := cmd.String("sort"); s != "" {
		if col, err = tv.ParseColumn(s); err != nil {
			return fmt.Errorf("%w: --sort: %v", shared.ErrInvalidFlag, err)
		}
		if !tv.HasColumn(key, col) {
			return fmt.Errorf("%w: --sort: %s has no %q column", shared.ErrInvalidFlag, key, col)
		}
	}

	format := strings.ToLower(cmd.String("format"))
	switch format {
	case FormatTable, FormatCSV, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: --format: unknown format %q", shared.ErrInvalidFlag, format)
	}

	snapshot, err := r.load(ctx, username, cmd.Bool("update"), true)
	if err != nil {
		return err
	}

	list := tv.FilterByTitle(snapshot.Lists[key], cmd.String("filter"))
	if col != "" {
		list = tv.Sort(list, col, !cmd.Bool("desc"))
	}
	total := len(list)
	if limit := cmd.Int("limit"); limit > 0 {
		pager := tv.NewPager[models.UserProductListEntry](limit, 1)
		pager.SetData(list)
		list = pager.Rows()
	}

	switch format {
	case FormatCSV:
		return formatter.WriteCSV(r.output, key, list)
	case FormatJSON:
		return formatter.WriteJSON(r.output, list)
	case FormatYAML:
		return formatter.WriteYAML(r.output, key, list)
	}

	r.writePlain("%s\n", renderTable(key, list))
	return r.writePlain("%s: %d of %d\n", key.Name(), len(list), total)
}

func renderTable(key models.ListKey, list models.UserProductList) string {
	cols := tv.Columns(key)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = string(c)
	}

	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...)
	for i := range list {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = tv.DisplayValue(&list[i], c)
		}
		t.Row(row...)
	}
	return t.String()
}

// Export writes the .xlsx workbook for a user's lists.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	username, err := requireUsername(cmd)
	if err != nil {
		return err
	}

	snapshot, err := r.load(ctx, username, cmd.Bool("update"), true)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Export.Dir
	}

	path, err := formatter.WriteExportFile(dir, snapshot.Lists, snapshot.FetchTimestamp, r.now())
	if err != nil {
		return err
	}

	r.logger.Info("exported lists", "username", username, "path", path, "entries", snapshot.Lists.Count())
	return r.writePlain("✓ Exported @%s (%d entries) to %s\n", username, snapshot.Lists.Count(), path)
}
