package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/orchestrator"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/tui"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runCreate provisions a new instance and prints the success summary.
func (a *app) runCreate(ctx context.Context, cmd *cobra.Command) error {
	if actions.SurveyName == "" || actions.SurveyOntology == "" || actions.SurveyData == "" {
		return fmt.Errorf("--create requires --survey-name, --survey-ontology and --survey-data")
	}

	result, err := a.orch.Create(ctx, orchestrator.CreateRequest{
		Name:         actions.SurveyName,
		OntologyPath: actions.SurveyOntology,
		DataPath:     actions.SurveyData,
	})
	if err != nil {
		return err
	}

	if a.flags.GetOutputFormat() == FormatJSON {
		return printJSON(cmd, result)
	}

	a.printCreateSummary(cmd, result)
	return nil
}

// printCreateSummary renders the human-readable create summary.
func (a *app) printCreateSummary(cmd *cobra.Command, result *orchestrator.CreateResult) {
	out := cmd.OutOrStdout()
	success := color.New(color.FgGreen, color.Bold)
	header := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	inst := result.Instance
	success.Fprintf(out, "Instance %s is ready\n\n", inst.ID)

	header.Fprintln(out, "Connection")
	fmt.Fprintf(out, "  Browser:  %s\n", inst.BrowserURL())
	fmt.Fprintf(out, "  Bolt:     %s\n", inst.BoltURL())
	fmt.Fprintf(out, "  Username: %s\n", inst.Username)
	fmt.Fprintf(out, "  Password: %s\n\n", inst.Password)

	header.Fprintln(out, "Graph")
	report := result.Report
	for name, count := range report.NodesByType {
		fmt.Fprintf(out, "  %s nodes: %d\n", name, count)
	}
	for name, count := range report.RelationshipsByType {
		fmt.Fprintf(out, "  %s relationships: %d\n", name, count)
	}
	fmt.Fprintf(out, "  Rows processed: %d\n", report.RowsProcessed)
	if report.DuplicateKeys > 0 {
		warn.Fprintf(out, "  Duplicate keys (last row kept): %d\n", report.DuplicateKeys)
	}
	if len(report.Skips) > 0 {
		warn.Fprintf(out, "  Skipped relationships: %d\n", len(report.Skips))
		if a.flags.IsVerbose() {
			for _, skip := range report.Skips {
				fmt.Fprintf(out, "    %s %s -> %s: %s\n",
					skip.Relationship, skip.SourceKey, skip.TargetKey, skip.Reason)
			}
		}
	}
	fmt.Fprintln(out)

	if len(result.ScriptPaths) > 0 {
		header.Fprintln(out, "Connection scripts")
		for _, path := range result.ScriptPaths {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
	if result.ResultPath != "" {
		fmt.Fprintf(out, "\nResult exported to %s\n", result.ResultPath)
	}
}

// runList prints the registry listing.
func (a *app) runList(ctx context.Context, cmd *cobra.Command) error {
	views, err := a.orch.List(ctx, false)
	if err != nil {
		return err
	}

	if a.flags.GetOutputFormat() == FormatJSON {
		return printJSON(cmd, views)
	}

	if len(views) == 0 {
		cmd.Println("No instances registered. Create one with --create.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tHTTP\tBOLT\tCONTAINER\tCREATED")
	for _, view := range views {
		running := "down"
		if view.ContainerRunning {
			running = "up"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			view.ID, view.Name, view.Status, view.HTTPPort, view.BoltPort,
			running, view.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// runPlatformInfo prints runtime availability and orchestrator settings.
func (a *app) runPlatformInfo(ctx context.Context, cmd *cobra.Command) error {
	report, err := a.orch.Platform(ctx)
	if err != nil {
		return err
	}

	if a.flags.GetOutputFormat() == FormatJSON {
		return printJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	availability := color.GreenString("available")
	if !report.Available {
		availability = color.RedString("unavailable")
	}
	fmt.Fprintf(out, "Container runtime: %s\n", availability)
	if report.ServerVersion != "" {
		fmt.Fprintf(out, "  Version:  %s (API %s)\n", report.ServerVersion, report.APIVersion)
	}
	fmt.Fprintf(out, "  Platform: %s/%s\n", report.OS, report.Arch)
	fmt.Fprintf(out, "Registry: %s (%d instances)\n", report.RegistryPath, report.InstanceCount)
	fmt.Fprintf(out, "Port window: http from %d, bolt from %d\n",
		report.PortWindowHTTP, report.PortWindowBolt)
	return nil
}

// runInteractive launches the instance browser.
func (a *app) runInteractive(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("--interactive needs an interactive terminal")
	}
	return tui.Run(ctx, a.orch)
}

func (a *app) runStart(ctx context.Context, cmd *cobra.Command, id string) error {
	inst, err := a.orch.Start(ctx, id)
	if err != nil {
		return err
	}
	cmd.Printf("Instance %s started (http %d, bolt %d)\n", inst.ID, inst.HTTPPort, inst.BoltPort)
	return nil
}

func (a *app) runStop(ctx context.Context, cmd *cobra.Command, id string) error {
	inst, err := a.orch.Stop(ctx, id)
	if err != nil {
		return err
	}
	cmd.Printf("Instance %s stopped\n", inst.ID)
	return nil
}

func (a *app) runRemove(ctx context.Context, cmd *cobra.Command, id string) error {
	inst, err := a.orch.Remove(ctx, id, actions.RemoveData)
	if err != nil {
		return err
	}
	if actions.RemoveData {
		cmd.Printf("Instance %s removed along with its data volume\n", inst.ID)
	} else {
		cmd.Printf("Instance %s removed (data volume %s kept)\n", inst.ID, inst.VolumeName)
	}
	return nil
}

func (a *app) runCleanupAll(ctx context.Context, cmd *cobra.Command) error {
	removed, err := a.orch.CleanupAll(ctx, actions.RemoveData)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d instances\n", removed)
	return nil
}

// runConnect prints connection info, copies the password to the clipboard,
// and opens the Neo4j browser. Clipboard and browser failures degrade to
// notes instead of failing the command.
func (a *app) runConnect(ctx context.Context, cmd *cobra.Command, id string) error {
	inst, err := a.orch.Get(ctx, id)
	if err != nil {
		return err
	}
	if inst.Status != types.StatusReady && inst.Status != types.StatusRunning {
		return types.NewError(types.INSTANCE_NOT_READY,
			fmt.Sprintf("instance %s is %s, start it before connecting", id, inst.Status))
	}

	out := cmd.OutOrStdout()
	header := color.New(color.Bold)
	header.Fprintf(out, "Connecting to %s\n", inst.Name)
	fmt.Fprintf(out, "  Browser:  %s\n", inst.BrowserURL())
	fmt.Fprintf(out, "  Bolt:     %s\n", inst.BoltURL())
	fmt.Fprintf(out, "  Username: %s\n", inst.Username)
	fmt.Fprintf(out, "  Password: %s\n", inst.Password)

	if err := clipboard.WriteAll(inst.Password); err != nil {
		cmd.PrintErrln("Note: could not copy password to clipboard:", err)
	} else {
		fmt.Fprintln(out, "Password copied to clipboard.")
	}

	if err := openBrowser(inst.BrowserURL()); err != nil {
		cmd.PrintErrln("Note: could not open browser:", err)
	} else {
		fmt.Fprintln(out, "Opening Neo4j Browser...")
	}
	return nil
}

// runScripts regenerates the connection scripts from the registry entry.
func (a *app) runScripts(ctx context.Context, cmd *cobra.Command, id string) error {
	paths, err := a.orch.Scripts(ctx, id)
	if err != nil {
		return err
	}
	cmd.Println("Connection scripts written:")
	for _, path := range paths {
		cmd.Printf("  %s\n", path)
	}
	return nil
}

// openBrowser opens a URL with the platform's default opener.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
