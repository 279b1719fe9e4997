package script

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

func scriptInstance() *types.Instance {
	return &types.Instance{
		ID:            "kg-town-survey-15032026-a1b2c3d4",
		Name:          "Town Survey",
		HTTPPort:      7475,
		BoltPort:      7688,
		Username:      "neo4j",
		Password:      "Xy7mPq2rTv9wKd3n",
		ContainerName: "neo4j-kg-town-survey-15032026-a1b2c3d4",
		VolumeName:    "kg_data_kg_town_survey_15032026_a1b2c3d4",
		Status:        types.StatusReady,
		CreatedAt:     time.Now(),
	}
}

func TestRenderShell(t *testing.T) {
	content, err := Render(KindShell, scriptInstance())
	require.NoError(t, err)

	assert.Contains(t, content, "#!/bin/bash")
	assert.Contains(t, content, "http://localhost:7475")
	assert.Contains(t, content, "bolt://localhost:7688")
	assert.Contains(t, content, "Xy7mPq2rTv9wKd3n")
	assert.Contains(t, content, "neo4j-kg-town-survey-15032026-a1b2c3d4")
	assert.Contains(t, content, "xclip")
}

func TestRenderPowerShellAndBatch(t *testing.T) {
	ps, err := Render(KindPowerShell, scriptInstance())
	require.NoError(t, err)
	assert.Contains(t, ps, "Set-Clipboard")
	assert.Contains(t, ps, "Start-Process \"http://localhost:7475\"")

	bat, err := Render(KindBatch, scriptInstance())
	require.NoError(t, err)
	assert.Contains(t, bat, "@echo off")
	assert.Contains(t, bat, "start http://localhost:7475")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(Kind("applescript"), scriptInstance())
	require.Error(t, err)
}

func TestFileNames(t *testing.T) {
	inst := scriptInstance()
	assert.Equal(t, "connect_town-survey_kg-town-survey-15032026-a1b2c3d4.sh", FileName(KindShell, inst))
	assert.Equal(t, "connect_town-survey_kg-town-survey-15032026-a1b2c3d4.ps1", FileName(KindPowerShell, inst))
	assert.Equal(t, "connect_town-survey_kg-town-survey-15032026-a1b2c3d4.bat", FileName(KindBatch, inst))
}

func TestEmitAllIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	emitter := NewEmitter(dir)
	inst := scriptInstance()

	first, err := emitter.EmitAll(inst)
	require.NoError(t, err)
	require.Len(t, first, 3)

	contents := make(map[Kind][]byte)
	for kind, path := range first {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		contents[kind] = data
	}

	second, err := emitter.EmitAll(inst)
	require.NoError(t, err)

	for kind, path := range second {
		assert.Equal(t, first[kind], path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, contents[kind], data, "regenerated %s differs", kind)
	}
}

func TestShellScriptIsExecutable(t *testing.T) {
	emitter := NewEmitter(t.TempDir())
	paths, err := emitter.EmitAll(scriptInstance())
	require.NoError(t, err)

	info, err := os.Stat(paths[KindShell])
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
}
