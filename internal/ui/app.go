package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/melocuore/internal/admin"
	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/prefs"
	"github.com/five82/melocuore/internal/recognize"
	"github.com/five82/melocuore/internal/session"
	"github.com/five82/melocuore/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewUpload
	ViewFiles
	ViewHistory
	ViewAdmin
	ViewLogs
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "Sign in"
	case ViewRegister:
		return "Register"
	case ViewUpload:
		return "Upload"
	case ViewFiles:
		return "My files"
	case ViewHistory:
		return "History"
	case ViewAdmin:
		return "Admin"
	case ViewLogs:
		return "Client log"
	default:
		return "?"
	}
}

// Sessions is the session-context provider the UI reads and drives.
type Sessions interface {
	Current() session.Session
	LastUsername() string
	Guard(ctx context.Context) (session.Session, error)
	Login(ctx context.Context, username, password string) (session.Session, error)
	Logout() error
	Register(ctx context.Context, reg api.Registration) error
}

// Library lists and deletes the signed-in user's uploads and analyses.
type Library interface {
	ListFiles(ctx context.Context) ([]api.UploadedAsset, error)
	ListAnalyses(ctx context.Context) ([]api.AnalysisRecord, error)
	DeleteFile(ctx context.Context, id int64) error
}

// AdminService performs admin tab loads and mutations.
type AdminService interface {
	Load(ctx context.Context, tab admin.Tab) (admin.Table, error)
	Create(ctx context.Context, tab admin.Tab, values admin.Values) (admin.Table, error)
	Update(ctx context.Context, tab admin.Tab, id int64, values admin.Values) (admin.Table, error)
	Delete(ctx context.Context, tab admin.Tab, id int64, label string, confirm admin.Confirmer) (admin.Table, error)
	ToggleSuperuser(ctx context.Context, id int64, current bool) (admin.Table, error)
}

// Recognizer runs one upload-and-recognize workflow, reporting progress to
// observe. It must return ctx.Err() once ctx is cancelled.
type Recognizer func(ctx context.Context, path string, observe recognize.Observer) (recognize.Outcome, error)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Sessions  Sessions
	Library   Library
	Admin     AdminService
	Recognize Recognizer
	Store     *state.Store
	Logger    *slog.Logger
	LogPath   string
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	sessions  Sessions
	library   Library
	adminSvc  AdminService
	recognize Recognizer
	store     *state.Store
	logger    *slog.Logger
	logPath   string
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal
	flash    string
	flashErr bool

	// Data state
	session     session.Session
	snapshot    state.Snapshot
	lastUpdated time.Time

	auth    form
	upload  uploadState
	files   listState
	history listState
	admin   adminState
	logs    logState

	// runCancel stops the in-flight recognition started as runID.
	runCancel context.CancelFunc
	runID     uint64
}

// listState is the cursor of a simple list view.
type listState struct {
	cursor int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = defaultTheme().Name
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	m := Model{
		ctx:       ctx,
		sessions:  opts.Sessions,
		library:   opts.Library,
		adminSvc:  opts.Admin,
		recognize: opts.Recognize,
		store:     store,
		logger:    logger.With("component", "ui"),
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		view:      ViewLogin,
		upload:    newUploadState(),
		logs:      newLogState(),
	}
	m.auth = m.loginForm()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		fetchSnapshotCmd(m.store),
		m.guardCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.files.cursor = clampCursor(m.files.cursor, len(m.snapshot.Uploads))
		m.history.cursor = clampCursor(m.history.cursor, len(m.snapshot.History))
		return m, nil

	case guardMsg:
		return m.handleGuard(msg)
	case authMsg:
		return m.handleAuth(msg)
	case registeredMsg:
		return m.handleRegistered(msg)

	case previewMsg:
		m.handlePreview(msg)
		return m, nil
	case runDoneMsg:
		return m.handleRunDone(msg)

	case filesLoadedMsg:
		m.store.SetUploads(msg.assets, msg.err)
		return m.afterLoad(msg.err, "Could not load your files")
	case historyLoadedMsg:
		m.store.SetHistory(msg.records, msg.err)
		return m.afterLoad(msg.err, "Could not load your history")
	case fileDeletedMsg:
		return m.handleFileDeleted(msg)

	case adminTableMsg:
		return m.handleAdminTable(msg)

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	// Views with a focused text input get every other key.
	if m.capturingInput() {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	}

	if !m.session.Authenticated() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.nextView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.nextView(-1))
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewUpload)
	case key.Matches(msg, m.keys.ViewUpload):
		return m.switchView(ViewUpload)
	case key.Matches(msg, m.keys.ViewFiles):
		return m.switchView(ViewFiles)
	case key.Matches(msg, m.keys.ViewHistory):
		return m.switchView(ViewHistory)
	case key.Matches(msg, m.keys.ViewAdmin):
		return m.switchView(ViewAdmin)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.view {
	case ViewUpload:
		return m.handleUploadKey(msg)
	case ViewFiles:
		return m.handleFilesKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	case ViewAdmin:
		return m.handleAdminKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// capturingInput reports whether a text input owns the keyboard.
func (m Model) capturingInput() bool {
	switch m.view {
	case ViewLogin, ViewRegister:
		return true
	case ViewUpload:
		return m.upload.editing
	case ViewAdmin:
		return m.admin.form != nil
	}
	return false
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewLogin, ViewRegister:
		return m.handleAuthKey(msg)
	case ViewUpload:
		return m.handleUploadInputKey(msg)
	case ViewAdmin:
		return m.handleAdminFormKey(msg)
	}
	return m, nil
}

// switchView changes the active view. Leaving the Upload view cancels the
// recognition in flight.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v == m.view {
		return m, nil
	}
	if v == ViewAdmin && !m.session.IsSuperuser() {
		m.setFlash(errorText(session.ErrNotAdmin, ""), true)
		return m, nil
	}
	if m.view == ViewUpload {
		m.cancelRun()
	}
	m.view = v
	m.flash = ""

	switch v {
	case ViewFiles:
		return m, m.loadFilesCmd()
	case ViewHistory:
		return m, m.loadHistoryCmd()
	case ViewAdmin:
		return m, m.adminLoadCmd(m.admin.tab)
	case ViewLogs:
		return m, m.readLogsCmd()
	}
	return m, nil
}

// navViews lists the views reachable with tab for the current session.
func (m Model) navViews() []View {
	views := []View{ViewUpload, ViewFiles, ViewHistory}
	if m.session.IsSuperuser() {
		views = append(views, ViewAdmin)
	}
	return append(views, ViewLogs)
}

func (m Model) nextView(step int) View {
	views := m.navViews()
	for i, v := range views {
		if v == m.view {
			return views[(i+step+len(views))%len(views)]
		}
	}
	return views[0]
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	name := m.theme.Name
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		m.logger.Warn("save theme preference failed", "error", err)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = strings.TrimSpace(text)
	m.flashErr = isErr
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancelRun()
	return m, tea.Quit
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchSnapshotCmd(m.store)}
	if m.view == ViewLogs && m.logs.follow && time.Since(m.logs.lastRead) >= LogRefreshInterval {
		cmds = append(cmds, m.readLogsCmd())
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// afterLoad reports a failed list load and sends an expired session back to
// sign-in.
func (m Model) afterLoad(err error, fallback string) (tea.Model, tea.Cmd) {
	if err == nil {
		return m, fetchSnapshotCmd(m.store)
	}
	if expired(err) {
		return m.signedOut(errorText(session.ErrDenied, ""))
	}
	m.setFlash(errorText(err, fallback), true)
	return m, fetchSnapshotCmd(m.store)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// contentHeight is the height of the titled box under header and command bar.
func (m Model) contentHeight() int {
	h := m.height - 3
	if h < 3 {
		return 3
	}
	return h
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	width, height := m.width, m.contentHeight()
	switch m.view {
	case ViewLogin, ViewRegister:
		return m.renderTitledBox(m.view.String(), m.renderAuth(), width, height, true)
	case ViewUpload:
		return m.renderTitledBox("Upload and recognize", m.renderUpload(), width, height, true)
	case ViewFiles:
		return m.renderTitledBox(m.filesTitle(), m.renderFiles(height-2), width, height, true)
	case ViewHistory:
		return m.renderTitledBox(m.historyTitle(), m.renderHistory(height-2), width, height, true)
	case ViewAdmin:
		return m.renderTitledBox("Admin · "+m.admin.tab.Title(), m.renderAdmin(height-2), width, height, true)
	case ViewLogs:
		return m.renderTitledBox(m.logsTitle(), m.logs.viewport.View(), width, height, true)
	default:
		return ""
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
