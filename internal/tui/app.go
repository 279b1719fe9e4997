package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/orchestrator"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/script"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// tickInterval defines how often the browser re-reads the registry.
const tickInterval = 5 * time.Second

// Controller is the orchestrator surface the browser needs.
// *orchestrator.Orchestrator satisfies it; tests substitute a fake.
type Controller interface {
	List(ctx context.Context, includeRemoved bool) ([]orchestrator.InstanceView, error)
	Start(ctx context.Context, id string) (*types.Instance, error)
	Stop(ctx context.Context, id string) (*types.Instance, error)
	Remove(ctx context.Context, id string, removeData bool) (*types.Instance, error)
	Scripts(ctx context.Context, id string) (map[script.Kind]string, error)
}

// instanceItem adapts a registry entry to the list component.
type instanceItem struct {
	view orchestrator.InstanceView
}

func (i instanceItem) FilterValue() string { return i.view.Name }

func (i instanceItem) Title() string {
	return fmt.Sprintf("%s  (%s)", i.view.Name, i.view.ID)
}

func (i instanceItem) Description() string {
	running := "container down"
	if i.view.ContainerRunning {
		running = "container up"
	}
	return fmt.Sprintf("%s | http %d | bolt %d | %s",
		i.view.Status, i.view.HTTPPort, i.view.BoltPort, running)
}

// App is the interactive instance browser model.
type App struct {
	ctx  context.Context
	ctrl Controller

	list   list.Model
	keyMap KeyMap
	theme  *Theme

	width  int
	height int

	showHelp     bool
	showDetail   bool
	showPassword bool
	confirmID    string
	status       string
}

// NewApp creates the browser over the given controller.
func NewApp(ctx context.Context, ctrl Controller) *App {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Survey Knowledge Graph Instances"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	return &App{
		ctx:    ctx,
		ctrl:   ctrl,
		list:   l,
		keyMap: DefaultKeyMap(),
		theme:  DefaultTheme(),
		width:  80,
		height: 24,
	}
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(NewApp(ctx, ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init loads the registry and starts the refresh tick.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadInstances, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg{Timestamp: t}
	})
}

// loadInstances reads the registry listing.
func (a *App) loadInstances() tea.Msg {
	views, err := a.ctrl.List(a.ctx, false)
	if err != nil {
		return errMsg{err}
	}
	return instancesLoadedMsg{Instances: views, Timestamp: time.Now()}
}

// selected returns the registry entry under the cursor.
func (a *App) selected() (orchestrator.InstanceView, bool) {
	item, ok := a.list.SelectedItem().(instanceItem)
	if !ok {
		return orchestrator.InstanceView{}, false
	}
	return item.view, true
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeList()
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.loadInstances, tickCmd())

	case instancesLoadedMsg:
		items := make([]list.Item, 0, len(msg.Instances))
		for _, view := range msg.Instances {
			items = append(items, instanceItem{view: view})
		}
		return a, a.list.SetItems(items)

	case actionDoneMsg:
		a.status = fmt.Sprintf("%s: %s", msg.Action, msg.InstanceID)
		return a, a.loadInstances

	case statusMsg:
		a.status = msg.Text
		return a, nil

	case errMsg:
		a.status = "error: " + msg.Err.Error()
		return a, nil

	case tea.KeyMsg:
		// While the list is filtering, all keys belong to it.
		if a.list.FilterState() == list.Filtering {
			break
		}
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// handleKey runs the browser's own bindings. Unhandled keys fall through
// to the list.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	keys := a.keyMap

	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		return nil, true

	case key.Matches(msg, keys.Escape):
		if a.confirmID != "" {
			a.confirmID = ""
			a.status = "remove cancelled"
			return nil, true
		}
		if a.showHelp || a.showDetail {
			a.showHelp = false
			a.showDetail = false
			a.showPassword = false
			return nil, true
		}
		return nil, false

	case key.Matches(msg, keys.Enter):
		a.showDetail = !a.showDetail
		a.showPassword = false
		a.resizeList()
		return nil, true

	case key.Matches(msg, keys.Refresh):
		return a.loadInstances, true

	case key.Matches(msg, keys.Password):
		if a.showDetail {
			a.showPassword = !a.showPassword
			return nil, true
		}
		return nil, false

	case key.Matches(msg, keys.Start):
		if view, ok := a.selected(); ok {
			return a.actionCmd("started", view.ID, func(ctx context.Context, id string) error {
				_, err := a.ctrl.Start(ctx, id)
				return err
			}), true
		}
		return nil, true

	case key.Matches(msg, keys.Stop):
		if view, ok := a.selected(); ok {
			return a.actionCmd("stopped", view.ID, func(ctx context.Context, id string) error {
				_, err := a.ctrl.Stop(ctx, id)
				return err
			}), true
		}
		return nil, true

	case key.Matches(msg, keys.Remove):
		view, ok := a.selected()
		if !ok {
			return nil, true
		}
		// First press arms the removal, second press runs it.
		if a.confirmID != view.ID {
			a.confirmID = view.ID
			a.status = fmt.Sprintf("press d again to remove %s, esc to cancel", view.ID)
			return nil, true
		}
		a.confirmID = ""
		return a.actionCmd("removed", view.ID, func(ctx context.Context, id string) error {
			_, err := a.ctrl.Remove(ctx, id, false)
			return err
		}), true

	case key.Matches(msg, keys.Copy):
		if view, ok := a.selected(); ok {
			return copyPasswordCmd(view.Password), true
		}
		return nil, true

	case key.Matches(msg, keys.Browser):
		if view, ok := a.selected(); ok {
			return openBrowserCmd(view.BrowserURL()), true
		}
		return nil, true

	case key.Matches(msg, keys.Scripts):
		if view, ok := a.selected(); ok {
			return a.scriptsCmd(view.ID), true
		}
		return nil, true
	}

	return nil, false
}

// actionCmd runs one lifecycle action off the update loop.
func (a *App) actionCmd(action, id string, fn func(ctx context.Context, id string) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{Action: action, InstanceID: id}
	}
}

// scriptsCmd regenerates the connection scripts for an instance.
func (a *App) scriptsCmd(id string) tea.Cmd {
	return func() tea.Msg {
		paths, err := a.ctrl.Scripts(a.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{Text: fmt.Sprintf("%d scripts written for %s", len(paths), id)}
	}
}

// copyPasswordCmd puts the instance password on the system clipboard.
func copyPasswordCmd(password string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(password); err != nil {
			return errMsg{err}
		}
		return statusMsg{Text: "password copied to clipboard"}
	}
}

// openBrowserCmd opens the Neo4j browser URL with the platform opener.
func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		if err := cmd.Start(); err != nil {
			return errMsg{err}
		}
		return statusMsg{Text: "opening " + url}
	}
}

func (a *App) resizeList() {
	height := a.height - 4
	if a.showDetail {
		height -= 12
	}
	if height < 4 {
		height = 4
	}
	a.list.SetSize(a.width, height)
}

// View renders the browser.
func (a *App) View() string {
	var sections []string

	sections = append(sections, a.list.View())

	if a.showHelp {
		sections = append(sections, a.renderHelp())
	} else if a.showDetail {
		if view, ok := a.selected(); ok {
			sections = append(sections, a.renderDetail(view))
		}
	}

	statusLine := a.status
	if statusLine == "" {
		statusLine = "? help | enter details | r refresh | q quit"
	}
	sections = append(sections, a.theme.LabelStyle.Render(statusLine))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDetail shows the connection info of the selected instance.
func (a *App) renderDetail(view orchestrator.InstanceView) string {
	password := strings.Repeat("*", 8)
	if a.showPassword {
		password = view.Password
	}

	label := a.theme.LabelStyle.Render
	value := a.theme.ValueStyle.Render

	lines := []string{
		a.theme.TitleStyle.Render(view.Name),
		label("ID:        ") + value(view.ID),
		label("Status:    ") + a.theme.StatusStyle(view.Status).Render(string(view.Status)),
		label("Browser:   ") + value(view.BrowserURL()),
		label("Bolt:      ") + value(view.BoltURL()),
		label("Username:  ") + value(view.Username),
		label("Password:  ") + value(password) + label("  (p to reveal, c to copy)"),
		label("Container: ") + value(view.ContainerName),
		label("Volume:    ") + value(view.VolumeName),
		label("Created:   ") + value(view.CreatedAt.Local().Format("2006-01-02 15:04:05")),
	}
	return a.theme.PanelStyle.Width(a.width - 2).Render(strings.Join(lines, "\n"))
}

// renderHelp shows the key bindings.
func (a *App) renderHelp() string {
	var lines []string
	lines = append(lines, a.theme.TitleStyle.Render("Keys"))
	for _, binding := range a.keyMap.HelpLines() {
		help := binding.Help()
		lines = append(lines, fmt.Sprintf("  %-8s %s",
			a.theme.ValueStyle.Render(help.Key), a.theme.LabelStyle.Render(help.Desc)))
	}
	return a.theme.PanelStyle.Width(a.width - 2).Render(strings.Join(lines, "\n"))
}
