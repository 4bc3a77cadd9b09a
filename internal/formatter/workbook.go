package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/xuri/excelize/v2"
)

const infoSheet = "Info"

// WorkbookOpts configures [WriteWorkbook].
type WorkbookOpts struct {
	// Location converts timestamps to wall-clock time; defaults to [time.Local].
	Location *time.Location
}

// WriteWorkbook writes an xlsx workbook with an Info sheet followed by one sheet per list, in [models.ListKeys]
// order, named after the list key ("Want", "Watched", "Shows").
func WriteWorkbook(w io.Writer, lists models.UserProductLists, fetchedAt time.Time, opts WorkbookOpts) error {
	if opts.Location == nil {
		opts.Location = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", infoSheet); err != nil {
		return fmt.Errorf("failed to create info sheet: %w", err)
	}
	if err := writeInfoSheet(f, fetchedAt.In(opts.Location)); err != nil {
		return err
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for _, key := range models.ListKeys {
		if err := writeListSheet(f, styles, key, lists[key], opts.Location); err != nil {
			return fmt.Errorf("failed to write %s sheet: %w", key, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteExportFile writes the workbook to dir under [ExportFilename] of now and returns its path.
func WriteExportFile(dir string, lists models.UserProductLists, fetchedAt, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, ExportFilename(now))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := WriteWorkbook(file, lists, fetchedAt, WorkbookOpts{Location: now.Location()}); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}

func writeInfoSheet(f *excelize.File, fetchedAt time.Time) error {
	rows := []string{
		"Each list was exported to a separate sheet of this workbook.",
		fmt.Sprintf("MustApp data was fetched on %s.", fetchedAt.Format("2006-01-02 15:04:05")),
		"Some columns' values are displayed as dates by Excel by default, but actually contain " +
			"time as well - you can change the cells' format to display those too.",
		"",
		"Report issues or request features at:",
		IssuesURL,
	}

	for i, text := range rows {
		if text == "" {
			continue
		}
		if err := f.SetCellStr(infoSheet, cell(1, i+1), text); err != nil {
			return fmt.Errorf("failed to write info sheet: %w", err)
		}
	}

	link := cell(1, len(rows))
	if err := f.SetCellHyperLink(infoSheet, link, IssuesURL, "External"); err != nil {
		return fmt.Errorf("failed to link issues URL: %w", err)
	}
	return nil
}

type styles struct {
	date int
}

func newStyles(f *excelize.File) (styles, error) {
	// 14 is the built-in short date format
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return styles{}, fmt.Errorf("failed to create date style: %w", err)
	}
	return styles{date: date}, nil
}

func writeListSheet(f *excelize.File, st styles, key models.ListKey, list models.UserProductList, loc *time.Location) error {
	sheet := shared.StartCase(string(key))
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	cols := exportColumns[key]
	for c, col := range cols {
		if err := f.SetCellStr(sheet, cell(c+1, 1), col.name); err != nil {
			return err
		}
	}

	titleWidth := minTitleWidth
	for r := range list {
		entry := &list[r]
		titleWidth = max(titleWidth, utf8.RuneCountInString(entry.Product.Title))

		for c, col := range cols {
			value := col.value(entry)
			if value == nil {
				continue
			}
			ref := cell(c+1, r+2)
			if t, ok := value.(time.Time); ok {
				value = wallClock(t, col.kind, loc)
			}
			if err := f.SetCellValue(sheet, ref, value); err != nil {
				return err
			}
			if col.kind == kindDate || col.kind == kindDateTime {
				if err := f.SetCellStyle(sheet, ref, ref, st.date); err != nil {
					return err
				}
			}
		}
	}
	titleWidth = min(titleWidth, maxTitleWidth)

	for c, col := range cols {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		width := float64(otherWidth)
		if col.name == colTitle.name {
			width = float64(titleWidth)
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

// wallClock converts t for writing: release dates are calendar dates and stay as parsed, timestamps move to loc.
func wallClock(t time.Time, k kind, loc *time.Location) time.Time {
	if k == kindDate {
		return t
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
