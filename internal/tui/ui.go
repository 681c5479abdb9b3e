package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/reaper/internal/node"
	"github.com/Paintersrp/reaper/internal/runtime"
	"github.com/Paintersrp/reaper/internal/terminator"
)

const (
	tableTitle             = "Processes"
	statusTitle            = "Status"
	confirmPageName        = "confirm"
	defaultRefreshInterval = time.Second
)

// Source is the node the UI watches and triggers.
type Source interface {
	Name() string
	Target() terminator.Target
	Matches(ctx context.Context) ([]runtime.Handle, error)
	Execute(ctx context.Context, in node.Inputs) terminator.Result
}

// Option configures UI behaviour.
type Option func(*UI)

// WithRefreshInterval sets how often the process table is re-read.
func WithRefreshInterval(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.interval = d
		}
	}
}

// WithForce starts the UI with force kill enabled.
func WithForce(force bool) Option {
	return func(u *UI) {
		u.force = force
	}
}

// WithText sets the passthrough text sent with every trigger.
func WithText(text string) Option {
	return func(u *UI) {
		u.text = text
	}
}

// UI coordinates the interactive process view backed by tview.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	status *tview.TextView

	src      Source
	interval time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	rows       []row
	listErr    error
	force      bool
	text       string
	lastStatus string
	busy       bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
	ctx      context.Context
	running  bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

type row struct {
	pid     int32
	name    string
	started time.Time
}

// New constructs a UI watching src.
func New(src Source, opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	status := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	status.SetBorder(true).SetTitle(statusTitle)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(status, 0, 2, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:      app,
		pages:    pages,
		table:    table,
		status:   status,
		src:      src,
		interval: defaultRefreshInterval,
		now:      time.Now,
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ui)
	}

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.renderLocked()
	ui.mu.Unlock()

	return ui
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and refreshes the process table until
// Stop is invoked or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.ctx = ctx
	u.running = true
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.poll(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	// Stop cancels ctx and closes done, which releases any pending render.
	u.Stop()
	u.wg.Wait()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) runContext() context.Context {
	u.cancelMu.Lock()
	defer u.cancelMu.Unlock()
	return u.ctx
}

func (u *UI) poll(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.refresh(ctx)
		}
	}
}

// refresh re-reads the matching processes without signalling them.
func (u *UI) refresh(ctx context.Context) {
	handles, err := u.src.Matches(ctx)
	u.mu.Lock()
	u.setRowsLocked(handles, err)
	u.mu.Unlock()
	u.queueRender(ctx)
}

func (u *UI) setRowsLocked(handles []runtime.Handle, err error) {
	u.listErr = err
	u.rows = u.rows[:0]
	for _, h := range handles {
		u.rows = append(u.rows, row{pid: h.PID(), name: h.Name(), started: h.StartTime()})
	}
}

// trigger runs one triggered invocation and records its status.
func (u *UI) trigger(ctx context.Context) {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return
	}
	u.busy = true
	in := node.Inputs{Text: u.text, Trigger: true, ForceKill: node.Flag(u.force)}
	u.mu.Unlock()

	res := u.src.Execute(ctx, in)

	u.mu.Lock()
	u.busy = false
	u.lastStatus = res.Status
	u.mu.Unlock()
	u.refresh(ctx)
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if u.pages.HasPage(confirmPageName) {
		return event
	}
	switch event.Key() {
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case 't', 'T':
			u.showConfirm()
			return nil
		case 'f', 'F':
			u.toggleForce()
			return nil
		case 'r', 'R':
			go u.refresh(u.runContext())
			return nil
		}
	}
	return event
}

func (u *UI) toggleForce() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.force = !u.force
	u.renderLocked()
}

func (u *UI) showConfirm() {
	u.mu.RLock()
	count, force := len(u.rows), u.force
	u.mu.RUnlock()

	mode := "gracefully"
	if force {
		mode = "with force kill"
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Terminate %d %s process(es) %s?", count, u.src.Target().Name, mode)).
		AddButtons([]string{"Terminate", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(confirmPageName)
			u.app.SetFocus(u.table)
			if buttonLabel == "Terminate" {
				go u.trigger(u.runContext())
			}
		})

	u.pages.AddPage(confirmPageName, modal, true, true)
	u.app.SetFocus(modal)
}

// queueRender redraws through the event loop while it is running. Without a
// loop, QueueUpdateDraw never returns, so the widgets are updated in place.
func (u *UI) queueRender(ctx context.Context) {
	if !u.loopActive() {
		u.mu.Lock()
		u.renderLocked()
		u.mu.Unlock()
		return
	}

	drawn := make(chan struct{})
	go func() {
		defer close(drawn)
		u.app.QueueUpdateDraw(func() {
			u.mu.Lock()
			defer u.mu.Unlock()
			u.renderLocked()
		})
	}()

	select {
	case <-drawn:
	case <-ctx.Done():
	case <-u.done:
	}
}

func (u *UI) loopActive() bool {
	select {
	case <-u.done:
		return false
	default:
	}
	u.cancelMu.Lock()
	defer u.cancelMu.Unlock()
	return u.running
}

func (u *UI) renderLocked() {
	u.table.Clear()

	headers := []string{"PID", "NAME", "AGE", "STARTED"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	target := u.src.Target()
	u.table.SetTitle(fmt.Sprintf("%s matching %q (%s: %s)", tableTitle, target.Name, u.src.Name(), target.GracePeriod))

	now := u.now()
	for i, r := range u.rows {
		age, started := "-", "-"
		if !r.started.IsZero() {
			age = units.HumanDuration(now.Sub(r.started))
			started = r.started.Format(time.DateTime)
		}
		values := []string{fmt.Sprintf("%d", r.pid), r.name, age, started}
		for col, value := range values {
			u.table.SetCell(i+1, col, tview.NewTableCell(value))
		}
	}

	force := "off"
	if u.force {
		force = "on"
	}
	u.status.SetTitle(fmt.Sprintf("%s (force kill: %s) t=terminate f=force r=refresh q=quit", statusTitle, force))
	u.status.Clear()
	if u.listErr != nil {
		fmt.Fprintf(u.status, "[red]%s[-]\n", tview.Escape("list: "+u.listErr.Error()))
	}
	if u.busy {
		fmt.Fprintln(u.status, "[yellow]terminating...[-]")
	}
	fmt.Fprint(u.status, formatStatus(u.lastStatus))
}

// formatStatus renders a status string with tview colour tags.
func formatStatus(status string) string {
	if status == "" {
		return ""
	}
	lines := strings.Split(status, "\n")
	for i, line := range lines {
		escaped := tview.Escape(line)
		switch {
		case strings.HasPrefix(line, "✓ "):
			lines[i] = "[green]" + escaped + "[-]"
		case strings.HasPrefix(line, "✗ "), strings.HasPrefix(line, "Error: "):
			lines[i] = "[red]" + escaped + "[-]"
		default:
			lines[i] = escaped
		}
	}
	return strings.Join(lines, "\n")
}
