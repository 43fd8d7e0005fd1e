// Command inspector is a minimal terminal dashboard demonstrating
// SPEC_FULL.md's dev-tool protocol from the outside: an external
// collaborator subscribing to the registry's devtools feed and
// rendering the live event log / handle list. Adapted from the
// teacher's pkg/bubbly/devtools TUI (DevToolsUI/StateViewer/EventTracker),
// trimmed from a multi-panel split layout down to one scrolling feed,
// since this module has no component tree to inspect — only handles and
// StateChange events.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaycore/reactor"
	"github.com/relaycore/reactor/pkg/devtools"
)

func main() {
	dt := devtools.Enable()
	fmt.Println("reactor inspector — watching the process-wide devtools feed")

	seedDemoActivity()

	p := tea.NewProgram(newModel(dt.GetStore()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "inspector: %v\n", err)
		os.Exit(1)
	}
}

// seedDemoActivity gives the dashboard something to show on launch —
// a standalone reactor.Wrap whose mutations flow through the same
// devtools feed any real application's handles would.
func seedDemoActivity() {
	s := reactor.Wrap(map[string]any{"count": 0})
	go func() {
		h := s.(interface{ Set(string, any) })
		for i := 1; ; i++ {
			time.Sleep(2 * time.Second)
			h.Set("count", i)
		}
	}()
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	store  *devtools.Store
	width  int
	height int
}

func newModel(store *devtools.Store) model {
	return model{store: store}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	handleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m model) View() string {
	handles := m.store.AllHandles()
	events := m.store.Events("", 20)

	var b string
	b += headerStyle.Render("reactor inspector") + dimStyle.Render("  (q to quit)") + "\n\n"

	b += headerStyle.Render(fmt.Sprintf("Handles (%d)", len(handles))) + "\n"
	if len(handles) == 0 {
		b += dimStyle.Render("  none registered yet") + "\n"
	}
	for _, h := range handles {
		b += "  " + handleStyle.Render(string(h.Kind)) + " " + dimStyle.Render(h.HandleID) + "\n"
	}

	b += "\n" + headerStyle.Render(fmt.Sprintf("Recent events (last %d)", len(events))) + "\n"
	if len(events) == 0 {
		b += dimStyle.Render("  nothing captured yet") + "\n"
	}
	for _, e := range events {
		b += fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(e.Timestamp.Format("15:04:05.000")),
			eventStyle.Render(e.Kind),
			dimStyle.Render(e.HandleID))
	}

	return b
}
