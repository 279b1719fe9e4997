package script

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Kind identifies a connection script flavor.
type Kind string

const (
	KindShell      Kind = "shell"
	KindPowerShell Kind = "powershell"
	KindBatch      Kind = "batch"
)

// scriptInfo is the template input, derived entirely from the registry
// entry so regeneration is always possible and always byte-identical.
type scriptInfo struct {
	ContainerName string
	BrowserURL    string
	BoltURL       string
	Username      string
	Password      string
}

// Emitter renders per-instance connection scripts.
type Emitter struct {
	outputDir string
}

// NewEmitter creates an emitter writing into outputDir.
func NewEmitter(outputDir string) *Emitter {
	return &Emitter{outputDir: outputDir}
}

// Render produces the script content of the given kind for an instance.
func Render(kind Kind, inst *types.Instance) (string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", types.NewError(types.INSTANCE_INVALID, "unknown script kind: "+string(kind))
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, scriptInfo{
		ContainerName: inst.ContainerName,
		BrowserURL:    inst.BrowserURL(),
		BoltURL:       inst.BoltURL(),
		Username:      inst.Username,
		Password:      inst.Password,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FileName returns the script file name for an instance and kind.
func FileName(kind Kind, inst *types.Instance) string {
	base := "connect_" + types.SanitizeName(inst.Name) + "_" + inst.ID
	switch kind {
	case KindPowerShell:
		return base + ".ps1"
	case KindBatch:
		return base + ".bat"
	default:
		return base + ".sh"
	}
}

// EmitAll writes all three script flavors for an instance and returns the
// written paths keyed by kind. Emission is idempotent: the same instance
// always produces the same bytes at the same paths.
func (e *Emitter) EmitAll(inst *types.Instance) (map[Kind]string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, err
	}

	paths := make(map[Kind]string, 3)
	for _, kind := range []Kind{KindShell, KindPowerShell, KindBatch} {
		content, err := Render(kind, inst)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(e.outputDir, FileName(kind, inst))
		mode := os.FileMode(0o644)
		if kind == KindShell {
			mode = 0o755
		}
		if err := os.WriteFile(path, []byte(content), mode); err != nil {
			return nil, err
		}
		paths[kind] = path
	}
	return paths, nil
}

var templates = map[Kind]*template.Template{
	KindShell: template.Must(template.New("shell").Parse(`#!/bin/bash
echo "Connecting to Neo4j Knowledge Graph: {{.ContainerName}}"
echo "============================================="
echo ""
echo "Neo4j Browser: {{.BrowserURL}}"
echo "Bolt Connection: {{.BoltURL}}"
echo "Username: {{.Username}}"
echo "Password: {{.Password}}"
echo ""

# Try to copy password to clipboard (if available)
if command -v xclip &> /dev/null; then
    echo "{{.Password}}" | xclip -selection clipboard
    echo "Password copied to clipboard (xclip)!"
elif command -v pbcopy &> /dev/null; then
    echo "{{.Password}}" | pbcopy
    echo "Password copied to clipboard (pbcopy)!"
fi

# Try to open browser (if available)
if command -v xdg-open &> /dev/null; then
    xdg-open "{{.BrowserURL}}"
elif command -v open &> /dev/null; then
    open "{{.BrowserURL}}"
fi

echo ""
echo "Press Enter to continue..."
read
`)),

	KindPowerShell: template.Must(template.New("powershell").Parse(`# Neo4j Knowledge Graph Connection Script
Write-Host "Connecting to Neo4j Knowledge Graph: {{.ContainerName}}" -ForegroundColor Green
Write-Host "=============================================" -ForegroundColor Green
Write-Host ""
Write-Host "Neo4j Browser: {{.BrowserURL}}" -ForegroundColor Cyan
Write-Host "Bolt Connection: {{.BoltURL}}" -ForegroundColor Cyan
Write-Host "Username: {{.Username}}" -ForegroundColor Cyan
Write-Host "Password: {{.Password}}" -ForegroundColor Yellow
Write-Host ""

# Copy password to clipboard
Set-Clipboard -Value "{{.Password}}"
Write-Host "Password copied to clipboard!" -ForegroundColor Green

# Open Neo4j Browser
Start-Process "{{.BrowserURL}}"

Write-Host ""
Write-Host "Press any key to continue..."
$null = $Host.UI.RawUI.ReadKey("NoEcho,IncludeKeyDown")
`)),

	KindBatch: template.Must(template.New("batch").Parse(`@echo off
echo Connecting to Neo4j Knowledge Graph: {{.ContainerName}}
echo =============================================
echo.
echo Neo4j Browser: {{.BrowserURL}}
echo Bolt Connection: {{.BoltURL}}
echo Username: {{.Username}}
echo Password: {{.Password}}
echo.
echo Opening Neo4j Browser...
start {{.BrowserURL}}
pause
`)),
}
