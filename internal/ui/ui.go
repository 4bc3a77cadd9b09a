package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mustx/internal/formatter"
	"github.com/desertthunder/mustx/internal/models"
	tv "github.com/desertthunder/mustx/internal/table"
	"github.com/desertthunder/mustx/internal/tasks"
	"github.com/dustin/go-humanize"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	TableView
)

// loadAhead is how close (in rows) the cursor gets to the last loaded row before the next batch is loaded.
const loadAhead = 5

// Loader loads a user's snapshot, from the cache unless update is set.
type Loader interface {
	Load(ctx context.Context, username string, update bool, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error)
}

// ModelOpts configures a [Model].
type ModelOpts struct {
	Username  string
	Update    bool   // skip the cache on the first load
	ExportDir string // where the export key writes workbooks
	BatchSize int    // rows loaded per batch
	Now       func() time.Time
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	loader       Loader
	opts         ModelOpts
	view         ViewState
	width        int
	height       int
	progressChan chan tasks.ProgressUpdate
	done         chan snapshotLoaded
	last         tasks.ProgressUpdate
	lists        map[models.ListKey]tasks.BatchProgress
	bar          progress.Model
	snapshot     *models.Snapshot
	data         *tv.View
	table        table.Model
	filter       textinput.Model
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model for opts.Username.
func NewModel(ctx context.Context, loader Loader, opts ModelOpts) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = tv.DefaultBatchSize
	}

	filter := textinput.New()
	filter.Prompt = "Filter: "
	filter.Placeholder = "title"

	return &Model{
		ctx:    ctx,
		loader: loader,
		opts:   opts,
		view:   LoadingView,
		lists:  make(map[models.ListKey]tasks.BatchProgress),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		table:  table.New(table.WithFocused(true), table.WithHeight(15)),
		filter: filter,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init starts loading the snapshot.
func (m *Model) Init() tea.Cmd {
	return m.startLoad(m.opts.Update)
}

// Err returns the error that ended the last load, if any.
func (m *Model) Err() error {
	return m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-30, 10)
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-12, 5))
		if m.data != nil {
			m.refreshTable(false)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			return m.handleLoadingKeys(msg)
		case TableView:
			return m.handleTableKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.last = update
		if p, ok := update.Data.(tasks.BatchProgress); ok {
			m.lists[p.List] = p
		}
		return m, waitForProgress(m.progressChan, m.done)

	case MsgSnapshotLoaded:
		result := msg.data.(snapshotLoaded)
		m.progressChan = nil
		m.done = nil
		if result.err != nil {
			m.err = result.err
			m.view = LoadingView
			return m, nil
		}

		m.snapshot = result.snapshot
		m.data = tv.NewView(result.snapshot.Lists, m.opts.BatchSize, tv.DefaultPreloadBatches)
		if v := m.filter.Value(); v != "" {
			m.data.SetFilter(v)
		}
		m.view = TableView
		m.refreshTable(true)
		return m, nil

	case MsgExported:
		result := msg.data.(exported)
		if result.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Export failed: %v", result.err))
		} else {
			m.status = styles.ok.Render("Exported to " + result.path)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleLoadingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload) && m.err != nil && m.progressChan == nil:
		return m, m.startLoad(true)
	}
	return m, nil
}

func (m *Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filter.Focused() {
		return m.handleFilterKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextList):
		m.selectList(1)
	case key.Matches(msg, m.keys.prevList):
		m.selectList(-1)
	case key.Matches(msg, m.keys.filter):
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.back):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
	case key.Matches(msg, m.keys.sort):
		cols := m.data.Columns()
		if idx := int(msg.String()[0] - '1'); idx < len(cols) {
			m.data.CycleSort(cols[idx])
			m.refreshTable(true)
		}
	case key.Matches(msg, m.keys.expand):
		if e := m.selected(); e != nil {
			m.data.ToggleExpanded(e)
		}
	case key.Matches(msg, m.keys.loadAll):
		if !m.data.Complete() {
			m.data.LoadAll()
			m.refreshTable(false)
		}
	case key.Matches(msg, m.keys.export):
		m.status = "Exporting..."
		return m, m.export()
	case key.Matches(msg, m.keys.reload):
		return m, m.startLoad(true)
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.loadMoreIfNeeded()
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.apply):
		m.filter.Blur()
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) applyFilter() {
	if m.data == nil || m.data.Filter() == m.filter.Value() {
		return
	}
	m.data.SetFilter(m.filter.Value())
	m.refreshTable(true)
}

func (m *Model) selectList(delta int) {
	n := len(models.ListKeys)
	idx := 0
	for i, k := range models.ListKeys {
		if k == m.data.Selected() {
			idx = i
		}
	}
	m.data.Select(models.ListKeys[(idx+delta+n)%n])
	m.refreshTable(true)
}

// loadMoreIfNeeded appends the next batch once the cursor is within [loadAhead] rows of the end.
func (m *Model) loadMoreIfNeeded() {
	if m.data.Complete() {
		return
	}
	if m.table.Cursor() >= len(m.data.Rows())-loadAhead {
		m.data.LoadMore()
		m.refreshTable(false)
	}
}

// refreshTable rebuilds columns and rows from the view. Rows are cleared first since the column count differs
// between lists.
func (m *Model) refreshTable(resetCursor bool) {
	cursor := m.table.Cursor()
	if resetCursor {
		cursor = 0
	}

	cols := m.data.Columns()
	m.table.SetRows(nil)
	m.table.SetColumns(tableColumns(cols, m.data.Sort(), m.width))
	m.table.SetRows(tableRows(cols, m.data.Rows()))
	m.table.SetCursor(cursor)
}

func (m *Model) selected() *models.UserProductListEntry {
	rows := m.data.Rows()
	c := m.table.Cursor()
	if c < 0 || c >= len(rows) {
		return nil
	}
	return &rows[c]
}

func (m *Model) startLoad(update bool) tea.Cmd {
	m.view = LoadingView
	m.err = nil
	m.status = ""
	m.last = tasks.ProgressUpdate{}
	m.lists = make(map[models.ListKey]tasks.BatchProgress)
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan snapshotLoaded, 1)

	ctx, loader, username := m.ctx, m.loader, m.opts.Username
	progressChan, done := m.progressChan, m.done
	go func() {
		snapshot, err := loader.Load(ctx, username, update, progressChan)
		done <- snapshotLoaded{snapshot, err}
		close(progressChan)
	}()

	return waitForProgress(progressChan, done)
}

// waitForProgress relays the next update, then the load result once the channel is closed.
func waitForProgress(progressChan <-chan tasks.ProgressUpdate, done <-chan snapshotLoaded) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progressChan; ok {
			return progressUpdateMsg(update)
		}
		result := <-done
		return snapshotLoadedMsg(result.snapshot, result.err)
	}
}

func (m *Model) export() tea.Cmd {
	snapshot, dir, now := m.snapshot, m.opts.ExportDir, m.opts.Now
	return func() tea.Msg {
		path, err := formatter.WriteExportFile(dir, snapshot.Lists, snapshot.FetchTimestamp, now())
		return exportedMsg(path, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case TableView:
		return m.renderTable()
	default:
		return ""
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Loading @" + m.opts.Username)

	if m.err != nil {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.quit})
		return fmt.Sprintf("%s\n%s\n\n%s", title, styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}

	phase := m.last.Message
	if phase == "" {
		phase = "Fetching profile..."
	}

	var b strings.Builder
	for _, k := range models.ListKeys {
		p := m.lists[k]
		percent := 0.0
		if p.Expect > 0 {
			percent = float64(p.Loaded) / float64(p.Expect)
		}
		fmt.Fprintf(&b, "%-8s %s %d/%d\n", k.Name(), m.bar.ViewAs(percent), p.Loaded, p.Expect)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, phase, b.String(), helpView)
}

func (m *Model) renderTable() string {
	fetched := humanize.RelTime(m.snapshot.FetchTimestamp, m.opts.Now(), "ago", "from now")
	header := styles.title.Render("@"+m.snapshot.Username) + " " + styles.As("fetched "+fetched, "#626262")

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(tabsView(m.data.Descriptors(), m.data.Selected()) + "\n\n")
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n")
	}
	b.WriteString(m.table.View() + "\n")

	count := fmt.Sprintf("%d of %d", len(m.data.Rows()), m.data.Total())
	if !m.data.Complete() {
		count += " (scroll or press a for more)"
	}
	b.WriteString(styles.help.Render(count) + "\n")

	if e := m.selected(); e != nil && m.data.Expanded(e) {
		b.WriteString(detailView(e, m.width) + "\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}
