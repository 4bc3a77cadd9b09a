package formatter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	th "github.com/desertthunder/mustx/internal/testing"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func testLists() models.UserProductLists {
	reviewed := th.Entry(10, "Stalker")
	reviewed.Product.ReleaseDate = models.NewDate(1979, time.May, 25)
	reviewed.UserProductInfo.Rate = th.IntPtr(10)
	reviewed.UserProductInfo.Reviewed = true
	reviewed.UserProductInfo.Review = &models.Review{
		Body:       "Zone",
		ReviewedAt: models.NewTime(time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)),
	}

	show := th.Entry(20, "Dark")
	show.UserProductInfo.UserShowInfo.EpisodesWatched = th.IntPtr(12)
	show.Product.ItemsReleasedCount = th.IntPtr(26)
	show.Product.ItemsCount = th.IntPtr(26)

	return models.UserProductLists{
		models.ListWant:    {th.Entry(1, strings.Repeat("Long title ", 10)), th.Entry(2, "Heat")},
		models.ListWatched: {reviewed},
		models.ListShows:   {show},
	}
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := ExportFilename(ts); got != "MustAppExport-2024-01-02-03-04-05.xlsx" {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestExportColumns(t *testing.T) {
	tests := []struct {
		key  models.ListKey
		want string
	}{
		{models.ListWant, "Title,Release date,Modified"},
		{models.ListShows, "Title,Release date,Modified,Watched,Released,Total"},
		{models.ListWatched, "Title,Release date,Modified,Rating,Reviewed,Review"},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			if got := strings.Join(ExportColumns(tt.key), ","); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	fetchedAt := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	if err := WriteWorkbook(&buf, testLists(), fetchedAt, WorkbookOpts{Location: time.UTC}); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to read workbook: %v", err)
	}
	defer f.Close()

	t.Run("Sheets", func(t *testing.T) {
		want := []string{"Info", "Want", "Watched", "Shows"}
		got := f.GetSheetList()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected sheets %v, got %v", want, got)
		}
	})

	t.Run("Info", func(t *testing.T) {
		rows, err := f.GetRows("Info")
		if err != nil {
			t.Fatalf("GetRows failed: %v", err)
		}
		if len(rows) != 6 {
			t.Fatalf("expected 6 info rows, got %d", len(rows))
		}
		if rows[1][0] != "MustApp data was fetched on 2024-06-01 12:30:00." {
			t.Errorf("unexpected fetch line %q", rows[1][0])
		}
		issues := "https://github.com/VsevolodGolovanov/mustapp-exporter/issues"
		if rows[5][0] != issues {
			t.Errorf("expected issues URL %q, got %q", issues, rows[5][0])
		}
		ok, target, err := f.GetCellHyperLink("Info", "A6")
		if err != nil || !ok || target != issues {
			t.Errorf("expected issues hyperlink, got %v %q %v", ok, target, err)
		}
	})

	t.Run("Want", func(t *testing.T) {
		rows, err := f.GetRows("Want")
		if err != nil {
			t.Fatalf("GetRows failed: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != "Title,Release date,Modified" {
			t.Errorf("unexpected header %v", rows[0])
		}
		if rows[2][0] != "Heat" {
			t.Errorf("unexpected title %q", rows[2][0])
		}

		width, err := f.GetColWidth("Want", "A")
		if err != nil || width != 80 {
			t.Errorf("expected clamped title width 80, got %v (%v)", width, err)
		}
		width, err = f.GetColWidth("Want", "B")
		if err != nil || width != 11 {
			t.Errorf("expected width 11, got %v (%v)", width, err)
		}
	})

	t.Run("Watched", func(t *testing.T) {
		width, _ := f.GetColWidth("Watched", "A")
		if width != 30 {
			t.Errorf("expected minimum title width 30, got %v", width)
		}

		raw, err := f.GetCellValue("Watched", "B2", excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("GetCellValue failed: %v", err)
		}
		// 1979-05-25 as an Excel serial date
		if raw != "29000" {
			t.Errorf("expected release date serial 29000, got %q", raw)
		}

		if v, _ := f.GetCellValue("Watched", "D2"); v != "10" {
			t.Errorf("expected rating 10, got %q", v)
		}
		if v, _ := f.GetCellValue("Watched", "F2"); v != "Zone" {
			t.Errorf("expected review text, got %q", v)
		}
	})

	t.Run("Shows", func(t *testing.T) {
		rows, _ := f.GetRows("Shows")
		if len(rows) != 2 || rows[1][3] != "12" || rows[1][4] != "26" || rows[1][5] != "26" {
			t.Errorf("unexpected shows rows %v", rows)
		}
	})
}

func TestWriteExportFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2024, 6, 1, 12, 30, 15, 0, time.UTC)

	path, err := WriteExportFile(dir, testLists(), now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("WriteExportFile failed: %v", err)
	}
	if filepath.Base(path) != "MustAppExport-2024-06-01-12-30-15.xlsx" {
		t.Errorf("unexpected path %s", path)
	}
	th.AssertFileExists(t, path)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty file, got %v", err)
	}
}

func TestDumps(t *testing.T) {
	lists := testLists()

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, models.ListWatched, lists[models.ListWatched]); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[1][0] != "Stalker" || records[1][1] != "1979-05-25" || records[1][3] != "10" || records[1][5] != "Zone" {
			t.Errorf("unexpected record %v", records[1])
		}
	})

	t.Run("CSV Write Failure", func(t *testing.T) {
		if err := WriteCSV(&th.FWriter{}, models.ListWant, lists[models.ListWant]); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, lists[models.ListShows]); err != nil {
			t.Fatalf("WriteJSON failed: %v", err)
		}
		if !strings.Contains(buf.String(), `"episodes_watched": 12`) {
			t.Errorf("expected snake_case fields, got %s", buf.String())
		}
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteYAML(&buf, models.ListShows, lists[models.ListShows]); err != nil {
			t.Fatalf("WriteYAML failed: %v", err)
		}

		var decoded []map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to parse YAML: %v", err)
		}
		if len(decoded) != 1 || decoded[0]["Title"] != "Dark" || decoded[0]["Watched"] != 12 {
			t.Errorf("unexpected YAML %v", decoded)
		}
		if _, ok := decoded[0]["Release date"]; ok {
			t.Error("expected missing values to be omitted")
		}
		if strings.Index(buf.String(), "Title") > strings.Index(buf.String(), "Watched") {
			t.Errorf("expected column order to be kept, got %s", buf.String())
		}
	})
}
