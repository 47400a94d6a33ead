// Package tray shows the mapper status in the system tray and offers Exit.
package tray

import (
	"context"
	"log"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/systray"

	"github.com/soar/dsmapper/internal/gamepad"
)

const (
	appName      = "DualSense Mapper"
	pollInterval = 250 * time.Millisecond
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// StateSource provides the latest published mapper state.
type StateSource interface {
	CurrentState() gamepad.State
}

// Tray manages the system tray icon and menu
type Tray struct {
	shutdownFunc ShutdownFunc
	pageURL      string
	once         sync.Once
	shuttingDown atomic.Bool

	menuStatus *systray.MenuItem
	menuOpen   *systray.MenuItem
	menuExit   *systray.MenuItem
	ready      chan struct{}
}

// New creates a tray. pageURL is the status page; empty hides "Open Status Page".
func New(pageURL string, shutdownFn ShutdownFunc) *Tray {
	return &Tray{
		shutdownFunc: shutdownFn,
		pageURL:      pageURL,
		ready:        make(chan struct{}),
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(iconData)
	systray.SetTitle(appName)
	systray.SetTooltip(appName)

	t.menuStatus = systray.AddMenuItem("Initializing...", "Mapper status")
	t.menuStatus.Disable()
	systray.AddSeparator()
	if t.pageURL != "" {
		t.menuOpen = systray.AddMenuItem("Open Status Page", t.pageURL)
	}
	t.menuExit = systray.AddMenuItem("Exit", "Stop mapping and quit")

	go t.handleMenuClicks()
	close(t.ready)

	log.Println("System tray initialized")
}

// handleMenuClicks processes menu item clicks without blocking
func (t *Tray) handleMenuClicks() {
	var openCh chan struct{}
	if t.menuOpen != nil {
		openCh = t.menuOpen.ClickedCh
	}
	for {
		select {
		case <-openCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

// Watch mirrors the published state into the status item and tooltip until
// ctx is done.
func (t *Tray) Watch(ctx context.Context, src StateSource) {
	select {
	case <-t.ready:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last string
	for {
		if status := src.CurrentState().Status; status != last {
			last = status
			t.menuStatus.SetTitle(status)
			systray.SetTooltip(appName + " - " + status)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	log.Println("System tray exiting")
}

func (t *Tray) openBrowser() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", t.pageURL)
	case "darwin":
		cmd = exec.Command("open", t.pageURL)
	default:
		cmd = exec.Command("xdg-open", t.pageURL)
	}

	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
