package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/orchestrator"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/script"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// fakeController scripts the orchestrator surface for model tests.
type fakeController struct {
	views []orchestrator.InstanceView

	startCalls  []string
	stopCalls   []string
	removeCalls []string
	listErr     error
}

func (f *fakeController) List(ctx context.Context, includeRemoved bool) ([]orchestrator.InstanceView, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.views, nil
}

func (f *fakeController) Start(ctx context.Context, id string) (*types.Instance, error) {
	f.startCalls = append(f.startCalls, id)
	return &types.Instance{ID: id, Status: types.StatusRunning}, nil
}

func (f *fakeController) Stop(ctx context.Context, id string) (*types.Instance, error) {
	f.stopCalls = append(f.stopCalls, id)
	return &types.Instance{ID: id, Status: types.StatusStopped}, nil
}

func (f *fakeController) Remove(ctx context.Context, id string, removeData bool) (*types.Instance, error) {
	f.removeCalls = append(f.removeCalls, id)
	return &types.Instance{ID: id, Status: types.StatusRemoved}, nil
}

func (f *fakeController) Scripts(ctx context.Context, id string) (map[script.Kind]string, error) {
	return map[script.Kind]string{script.KindShell: "/tmp/connect.sh"}, nil
}

func testViews() []orchestrator.InstanceView {
	return []orchestrator.InstanceView{
		{
			Instance: &types.Instance{
				ID:       "kg-alpha-01012026-deadbeef",
				Name:     "alpha",
				HTTPPort: 7474,
				BoltPort: 7687,
				Username: "neo4j",
				Password: "secret",
				Status:   types.StatusReady,
			},
			ContainerRunning: true,
		},
		{
			Instance: &types.Instance{
				ID:       "kg-beta-01012026-cafebabe",
				Name:     "beta",
				HTTPPort: 7475,
				BoltPort: 7688,
				Status:   types.StatusStopped,
			},
		},
	}
}

// loadedApp returns an app with the fake listing applied and a size set.
func loadedApp(t *testing.T, ctrl *fakeController) *App {
	t.Helper()

	app := NewApp(context.Background(), ctrl)

	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app = model.(*App)

	msg := app.loadInstances()
	loaded, ok := msg.(instancesLoadedMsg)
	require.True(t, ok)

	model, _ = app.Update(loaded)
	return model.(*App)
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestAppLoadsInstances(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	require.Len(t, app.list.Items(), 2)

	view, ok := app.selected()
	require.True(t, ok)
	assert.Equal(t, "alpha", view.Name)
	assert.Contains(t, app.View(), "alpha")
}

func TestAppListErrorReachesStatusBar(t *testing.T) {
	ctrl := &fakeController{listErr: assert.AnError}
	app := NewApp(context.Background(), ctrl)

	msg := app.loadInstances()
	model, _ := app.Update(msg)
	app = model.(*App)

	assert.Contains(t, app.status, "error:")
}

func TestAppStopSelected(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	_, cmd := app.Update(keyPress('s'))
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	assert.Equal(t, "stopped", done.Action)
	assert.Equal(t, []string{"kg-alpha-01012026-deadbeef"}, ctrl.stopCalls)
}

func TestAppRemoveNeedsConfirmation(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	model, cmd := app.Update(keyPress('d'))
	app = model.(*App)
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.removeCalls)
	assert.Contains(t, app.status, "press d again")

	_, cmd = app.Update(keyPress('d'))
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	assert.Equal(t, "removed", done.Action)
	assert.Equal(t, []string{"kg-alpha-01012026-deadbeef"}, ctrl.removeCalls)
}

func TestAppEscapeCancelsRemoval(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	model, _ := app.Update(keyPress('d'))
	app = model.(*App)
	require.NotEmpty(t, app.confirmID)

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(*App)
	assert.Empty(t, app.confirmID)

	// The next press arms again instead of executing.
	_, cmd := app.Update(keyPress('d'))
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.removeCalls)
}

func TestAppDetailHidesPasswordUntilRevealed(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	require.True(t, app.showDetail)
	assert.NotContains(t, app.View(), "secret")

	model, _ = app.Update(keyPress('p'))
	app = model.(*App)
	assert.Contains(t, app.View(), "secret")
}

func TestAppTickSchedulesReload(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	_, cmd := app.Update(tickMsg{Timestamp: time.Now()})
	require.NotNil(t, cmd)
}

func TestAppHelpOverlayToggles(t *testing.T) {
	ctrl := &fakeController{views: testViews()}
	app := loadedApp(t, ctrl)

	model, _ := app.Update(keyPress('?'))
	app = model.(*App)
	assert.True(t, app.showHelp)
	assert.Contains(t, app.View(), "Keys")

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(*App)
	assert.False(t, app.showHelp)
}
