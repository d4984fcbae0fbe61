// Package app is the root Bubble Tea model of the primebench client.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/primebench/primebench/internal/client"
	"github.com/primebench/primebench/internal/export"
	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
	"github.com/primebench/primebench/internal/theme"
	"github.com/primebench/primebench/internal/views/chart"
	"github.com/primebench/primebench/internal/views/debug"
	"github.com/primebench/primebench/internal/views/form"
	"github.com/primebench/primebench/internal/views/help"
	resultsview "github.com/primebench/primebench/internal/views/results"
	"github.com/primebench/primebench/internal/views/status"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDebug
	OverlayHelp
)

const hostPollInterval = 5 * time.Second

// Options wires the model to its collaborators.
type Options struct {
	Controller *stream.Controller
	// HTTP is optional; without it the status bar shows no host load.
	HTTP      *client.HTTPClient
	Renderer  *export.ImageRenderer
	ExportDir string
	Transport string
	Params    stream.Params
	Log       *zap.SugaredLogger
	HelpStyle string
	// Archive, when set, is shown instead of an empty view at start.
	Archive     *export.Archive
	ArchiveName string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctrl      *stream.Controller
	http      *client.HTTPClient
	renderer  *export.ImageRenderer
	exportDir string
	log       *zap.SugaredLogger
	ctx       context.Context
	cancel    context.CancelFunc
	now       func() time.Time

	keys   KeyMap
	width  int
	height int

	overlay Overlay

	// session is the live session, nil before the first start or while
	// an archive is shown.
	session *stream.Session
	// loaded describes the archive on screen when session is nil.
	loaded     *export.Archive
	loadedName string

	message    string
	messageErr bool

	statusBar status.Model
	form      form.Model
	chart     chart.Model
	results   resultsview.Model
	debug     debug.Model
	help      help.Model
	spinner   spinner.Model
}

// sessionEventMsg carries one transport event back into Update. Events for
// any session other than the current one are dropped.
type sessionEventMsg struct {
	SessionID uuid.UUID
	Event     stream.Event
	Closed    bool
}

type exportDoneMsg struct {
	Kind string
	Path string
	Err  error
}

type hostMsg struct {
	Info *client.HostInfo
	Err  error
}

type hostTickMsg struct{}

// New creates the root model.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = export.NewImageRenderer(0, 0)
	}
	keys := DefaultKeyMap()

	m := Model{
		ctrl:      opts.Controller,
		http:      opts.HTTP,
		renderer:  renderer,
		exportDir: opts.ExportDir,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		keys:      keys,
		statusBar: status.New(opts.Transport),
		form:      form.New(opts.Params),
		chart:     chart.New(),
		results:   resultsview.New(80, 10),
		debug:     debug.New(),
		help:      help.New(opts.HelpStyle, keys.Bindings()...),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.statusBar.Target = opts.Params.IterationCount

	if opts.Archive != nil {
		m.loadArchive(opts.Archive, opts.ArchiveName)
	}
	return m
}

func (m *Model) loadArchive(a *export.Archive, name string) {
	m.ctrl.Restore(a.Items)
	m.loaded = a
	m.loadedName = name
	m.statusBar.Source = name
	m.statusBar.Target = a.Params.IterationCount
	m.debug.Addf(debug.KindState, "loaded archive %s: %d items from session %s", name, len(a.Items), a.SessionID)
	m.refresh()
}

// Init starts host polling and draws the initial snapshot.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchHost(), m.chart.SetSnapshot(m.ctrl.Store().Snapshot()))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd

	case sessionEventMsg:
		return m.handleSessionEvent(msg)

	case chart.FrameMsg:
		var cmd tea.Cmd
		m.chart, cmd = m.chart.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.active() {
			m.statusBar.Spinner = ""
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.Spinner = m.spinner.View()
		return m, cmd

	case exportDoneMsg:
		if msg.Err != nil {
			m.setError(fmt.Sprintf("%s export failed: %v", msg.Kind, msg.Err))
			m.debug.Addf(debug.KindError, "%s export: %v", msg.Kind, msg.Err)
			return m, nil
		}
		m.setMessage(fmt.Sprintf("%s written to %s", msg.Kind, msg.Path))
		m.debug.Addf(debug.KindExport, "%s -> %s", msg.Kind, msg.Path)
		return m, nil

	case hostMsg:
		m.statusBar.Host = msg.Info
		m.statusBar.HostErr = msg.Err
		if msg.Err != nil {
			m.debug.Addf(debug.KindHost, "host info: %v", msg.Err)
		}
		return m, tea.Tick(hostPollInterval, func(time.Time) tea.Msg { return hostTickMsg{} })

	case hostTickMsg:
		return m, m.fetchHost()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug) && m.overlay == OverlayDebug,
			key.Matches(msg, m.keys.Help) && m.overlay == OverlayHelp:
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	if m.form.Accepts(msg) {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		return m.start()

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl.Cancel() {
			m.setMessage("stream cancelled")
			m.debug.Add(debug.KindState, "cancelled by user")
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.CSV):
		return m, m.exportCSV()

	case key.Matches(msg, m.keys.PNG):
		snap := m.ctrl.Store().Snapshot()
		if snap.Len() == 0 {
			err := &export.CaptureError{Reason: "no items to plot"}
			m.setError(err.Error())
			return m, nil
		}
		m.setMessage("rendering chart…")
		return m, m.exportPNG(snap)

	case key.Matches(msg, m.keys.Archive):
		return m, m.exportArchive()

	case key.Matches(msg, m.keys.Expand):
		m.results.ToggleExpanded()
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		m.help.View(m.width)
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Close()
	m.cancel()
	return m, tea.Quit
}

func (m Model) start() (tea.Model, tea.Cmd) {
	params, err := m.form.Params()
	if err != nil {
		m.setError(err.Error())
		return m, nil
	}

	sess, err := m.ctrl.Start(m.ctx, params)
	if err != nil {
		m.setError(err.Error())
		return m, nil
	}
	if m.session != nil {
		m.debug.Addf(debug.KindState, "session %s superseded", shortID(m.session.ID()))
	}
	m.session = sess
	m.loaded = nil
	m.loadedName = ""
	m.statusBar.Source = ""
	m.statusBar.Target = params.IterationCount
	m.message = ""
	m.debug.Addf(debug.KindState, "session %s connecting (itemSize=%d, iterationCount=%d)",
		shortID(sess.ID()), params.ItemSize, params.IterationCount)

	return m, tea.Batch(m.refresh(), nextEvent(m.ctx, sess), m.spinner.Tick)
}

// nextEvent waits for the session's next transport event off the Update
// goroutine.
func nextEvent(ctx context.Context, sess *stream.Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := sess.Next(ctx)
		return sessionEventMsg{SessionID: sess.ID(), Event: ev, Closed: !ok}
	}
}

func (m Model) handleSessionEvent(msg sessionEventMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.SessionID != m.session.ID() {
		m.log.Debugw("dropping event for stale session", "session", msg.SessionID.String())
		return m, nil
	}
	sess := m.session
	if sess.Status().IsTerminal() {
		return m, nil
	}

	if msg.Closed {
		if m.ctx.Err() != nil {
			return m, nil
		}
		msg.Event = stream.Event{Kind: stream.EventError, Err: stream.ErrUnexpectedEOF}
	}

	before := sess.Rejected()
	changed := sess.Handle(msg.Event)
	switch {
	case sess.Rejected() > before:
		m.debug.Addf(debug.KindReject, "malformed frame discarded (%d total)", sess.Rejected())
	case msg.Event.Kind == stream.EventData && changed:
		m.debug.Addf(debug.KindFrame, "item %d", sess.Snapshot().Len())
	case msg.Event.Kind == stream.EventData:
		m.debug.Addf(debug.KindFrame, "ignored %q frame", msg.Event.Name)
	case msg.Event.Kind == stream.EventOpened:
		m.debug.Add(debug.KindState, "streaming")
	}

	cmd := m.refresh()
	st := sess.Status()
	switch st {
	case stream.Completed:
		agg := sess.Snapshot().Aggregate
		m.setMessage(fmt.Sprintf("completed: %d items, mean %.6fs", agg.Count, agg.Mean))
		m.debug.Add(debug.KindState, "completed")
		return m, cmd
	case stream.Failed:
		err := sess.Err()
		m.setError(fmt.Sprintf("stream ended abnormally: %v (%d items kept)", err, sess.Snapshot().Len()))
		m.debug.Addf(debug.KindError, "%v", err)
		return m, cmd
	}
	return m, tea.Batch(cmd, nextEvent(m.ctx, sess))
}

// refresh copies the current store snapshot into the views.
func (m *Model) refresh() tea.Cmd {
	snap := m.ctrl.Store().Snapshot()
	m.results.SetItems(snap.Items)
	m.statusBar.Items = snap.Len()

	switch {
	case m.session != nil:
		m.statusBar.Status = m.session.Status().String()
		m.statusBar.Rejected = m.session.Rejected()
		m.statusBar.Elapsed = m.session.Elapsed()
	case m.loaded != nil:
		m.statusBar.Status = m.loaded.Status.String()
		m.statusBar.Rejected = 0
		m.statusBar.Elapsed = 0
	}
	if !m.active() {
		m.statusBar.Spinner = ""
	}
	return m.chart.SetSnapshot(snap)
}

func (m Model) active() bool {
	if m.session == nil {
		return false
	}
	st := m.session.Status()
	return st == stream.Connecting || st == stream.Streaming
}

func (m *Model) setMessage(s string) {
	m.message = s
	m.messageErr = false
}

func (m *Model) setError(s string) {
	m.message = s
	m.messageErr = true
}

// exportSource captures the run on screen for an export command.
func (m Model) exportSource() exportSource {
	src := exportSource{Snapshot: m.ctrl.Store().Snapshot(), Now: m.now(), Status: stream.Idle}
	switch {
	case m.session != nil:
		src.SessionID = m.session.ID().String()
		src.Params = m.session.Params()
		src.Status = m.session.Status()
	case m.loaded != nil:
		src.SessionID = m.loaded.SessionID
		src.Params = m.loaded.Params
		src.Status = m.loaded.Status
	}
	return src
}

func (m Model) exportCSV() tea.Cmd {
	src, dir := m.exportSource(), m.exportDir
	return func() tea.Msg {
		path, err := writeCSV(dir, src)
		return exportDoneMsg{Kind: "CSV", Path: path, Err: err}
	}
}

func (m Model) exportPNG(snap results.Snapshot) tea.Cmd {
	src, dir := m.exportSource(), m.exportDir
	src.Snapshot = snap
	ctx, renderer := m.ctx, m.renderer
	return func() tea.Msg {
		path, err := writePNG(ctx, renderer, dir, src)
		return exportDoneMsg{Kind: "PNG", Path: path, Err: err}
	}
}

func (m Model) exportArchive() tea.Cmd {
	src, dir := m.exportSource(), m.exportDir
	return func() tea.Msg {
		path, err := writeArchive(dir, src)
		return exportDoneMsg{Kind: "archive", Path: path, Err: err}
	}
}

func (m Model) fetchHost() tea.Cmd {
	if m.http == nil {
		return nil
	}
	httpClient := m.http
	ctx := m.ctx
	return func() tea.Msg {
		info, err := httpClient.GetHost(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return hostMsg{Info: info, Err: err}
	}
}

// layout distributes the terminal height between the chart and the list.
func (m *Model) layout() {
	m.statusBar.Width = m.width
	m.chart.Width = m.width

	// status bar (3) + form (1) + message (1) + summary (1) + key hints (1)
	free := m.height - 7
	chartH := free / 3
	if chartH < 4 {
		chartH = 4
	}
	if chartH > 12 {
		chartH = 12
	}
	m.chart.Height = chartH
	listH := free - chartH - 1
	if listH < 3 {
		listH = 3
	}
	m.results.SetSize(m.width, listH)
	m.help.View(m.width)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.overlay {
	case OverlayDebug:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.debug.View(m.width, m.height))
	case OverlayHelp:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.help.View(m.width))
	}

	sections := []string{
		m.statusBar.View(),
		m.form.View(),
		m.renderMessage(),
		m.chart.View(),
		m.renderSummary(),
		m.results.View(),
		theme.StyleDimmed.Render("  enter:start  x:cancel  c:csv  p:png  s:save  e:expand  d:log  ?:help  q:quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderMessage() string {
	if m.message == "" {
		return ""
	}
	if m.messageErr {
		return theme.StyleError.Render("  " + m.message)
	}
	return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("  " + m.message)
}

func (m Model) renderSummary() string {
	agg := m.ctrl.Store().Snapshot().Aggregate
	if agg.Count == 0 {
		return theme.StyleDimmed.Render("  mean –")
	}
	return theme.StyleHeader.Render(fmt.Sprintf("  mean %.6fs", agg.Mean)) +
		theme.StyleDimmed.Render(fmt.Sprintf("   min %.6fs  max %.6fs  σ %.6fs  n=%d",
			agg.Min, agg.Max, agg.StdDev(), agg.Count))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
