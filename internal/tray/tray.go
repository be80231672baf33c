// Package tray provides the system tray menu of the mudra sign recognition
// system.
package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/pipeline"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onMode   func(mode pipeline.Override)
	onOpen   func()
	onQuit   func()
	enabled  bool
	mode     pipeline.Override
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastSign *systray.MenuItem
	menuModes    map[pipeline.Override]*systray.MenuItem
}

// New creates a Tray showing the given initial state.
func New(enabled bool, mode pipeline.Override) *Tray {
	return &Tray{
		enabled: enabled,
		mode:    mode,
	}
}

// OnToggle sets the callback called when recognition is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMode sets the callback called when a recognition mode is picked.
func (t *Tray) OnMode(fn func(mode pipeline.Override)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnOpen sets the callback called when the web UI item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It blocks until Quit is called and
// must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("mudra")
	systray.SetTooltip("mudra sign recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle sign recognition")
	systray.AddSeparator()

	t.menuLastSign = systray.AddMenuItem(LastSignTitle(pipeline.NewState().Snapshot()), "Last recognised sign")
	t.menuLastSign.Disable()
	systray.AddSeparator()

	modeMenu := systray.AddMenuItem("Mode", "Recognition mode")
	t.menuModes = make(map[pipeline.Override]*systray.MenuItem)
	for _, mode := range []pipeline.Override{pipeline.OverrideAuto, pipeline.OverrideStatic, pipeline.OverrideDynamic} {
		t.menuModes[mode] = modeMenu.AddSubMenuItemCheckbox(mode.String(), "Recognise "+mode.String(), mode == t.mode)
	}
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open web UI...", "Open the web UI in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit mudra")
	modes := t.menuModes
	t.mu.Unlock()

	for mode, item := range modes {
		go func() {
			for range item.ClickedCh {
				t.handleMode(mode)
			}
		}()
	}

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMode(mode pipeline.Override) {
	t.mu.Lock()
	t.mode = mode
	for m, item := range t.menuModes {
		if m == mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	callback := t.onMode
	t.mu.Unlock()

	if callback != nil {
		callback(mode)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastSign updates the last sign display in the menu.
func (t *Tray) SetLastSign(snap pipeline.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastSign != nil {
		t.menuLastSign.SetTitle(LastSignTitle(snap))
	}
}

// Watch shows every prediction published on state until ctx is done.
func (t *Tray) Watch(ctx context.Context, state *pipeline.State) {
	updates, unsubscribe := state.Subscribe(1)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-updates:
			if !ok {
				return
			}
			t.SetLastSign(rec.Snapshot())
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Mode returns the mode last picked in the menu.
func (t *Tray) Mode() pipeline.Override {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// LastSignTitle is the menu text for snap.
func LastSignTitle(snap pipeline.Snapshot) string {
	if snap.Kind == nil {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (%.2f)", snap.Text, snap.Confidence)
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}
