package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

// actionFlags holds the mutually exclusive action flags of the root command.
type actionFlags struct {
	Create       bool
	List         bool
	PlatformInfo bool
	Interactive  bool
	CleanupAll   bool

	StartID   string
	StopID    string
	RemoveID  string
	ConnectID string
	ScriptsID string

	RemoveData bool

	SurveyName     string
	SurveyOntology string
	SurveyData     string
}

var actions = &actionFlags{}

var rootCmd = &cobra.Command{
	Use:   "kgbuilder",
	Short: "kgbuilder - Survey Knowledge Graph Instance Orchestrator",
	Long: `kgbuilder provisions isolated Neo4j instances for survey datasets:
it allocates host ports, starts a dedicated container, loads the dataset
as a knowledge graph according to a declared ontology, and emits
connection scripts for the finished instance.

Each run of --create produces one independent instance; --list shows
every instance the registry knows about.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRootCmd,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	flags := rootCmd.Flags()

	flags.BoolVar(&actions.Create, "create", false, "Create a new survey knowledge graph instance")
	flags.BoolVar(&actions.List, "list", false, "List all registered instances")
	flags.BoolVar(&actions.PlatformInfo, "platform-info", false, "Show container runtime and orchestrator settings")
	flags.BoolVar(&actions.Interactive, "interactive", false, "Browse instances interactively")
	flags.BoolVar(&actions.CleanupAll, "cleanup-all", false, "Stop and remove every registered instance")

	flags.StringVar(&actions.StartID, "start", "", "Start a stopped instance by id")
	flags.StringVar(&actions.StopID, "stop", "", "Stop a running instance by id")
	flags.StringVar(&actions.RemoveID, "remove", "", "Remove an instance by id")
	flags.StringVar(&actions.ConnectID, "connect", "", "Print connection info for an instance, copy the password, open the browser")
	flags.StringVar(&actions.ScriptsID, "scripts", "", "Regenerate connection scripts for an instance by id")

	flags.BoolVar(&actions.RemoveData, "remove-data", false, "Also remove the data volume (with --remove or --cleanup-all)")

	flags.StringVar(&actions.SurveyName, "survey-name", "", "Survey name for --create")
	flags.StringVar(&actions.SurveyOntology, "survey-ontology", "", "Path to the ontology YAML for --create")
	flags.StringVar(&actions.SurveyData, "survey-data", "", "Path to the survey CSV for --create")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// selectedActions counts how many action flags were set.
func (a *actionFlags) selected() []string {
	var names []string
	for name, set := range map[string]bool{
		"--create":        a.Create,
		"--list":          a.List,
		"--platform-info": a.PlatformInfo,
		"--interactive":   a.Interactive,
		"--cleanup-all":   a.CleanupAll,
		"--start":         a.StartID != "",
		"--stop":          a.StopID != "",
		"--remove":        a.RemoveID != "",
		"--connect":       a.ConnectID != "",
		"--scripts":       a.ScriptsID != "",
	} {
		if set {
			names = append(names, name)
		}
	}
	return names
}

// runRootCmd dispatches the selected action flag.
func runRootCmd(cmd *cobra.Command, args []string) error {
	if _, err := ParseGlobalFlags(cmd); err != nil {
		return err
	}

	selected := actions.selected()
	sort.Strings(selected)
	switch len(selected) {
	case 0:
		return cmd.Help()
	case 1:
	default:
		return fmt.Errorf("flags %v are mutually exclusive, pick one action", selected)
	}

	app, cleanup, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	switch {
	case actions.Create:
		return app.runCreate(ctx, cmd)
	case actions.List:
		return app.runList(ctx, cmd)
	case actions.PlatformInfo:
		return app.runPlatformInfo(ctx, cmd)
	case actions.Interactive:
		return app.runInteractive(ctx)
	case actions.CleanupAll:
		return app.runCleanupAll(ctx, cmd)
	case actions.StartID != "":
		return app.runStart(ctx, cmd, actions.StartID)
	case actions.StopID != "":
		return app.runStop(ctx, cmd, actions.StopID)
	case actions.RemoveID != "":
		return app.runRemove(ctx, cmd, actions.RemoveID)
	case actions.ConnectID != "":
		return app.runConnect(ctx, cmd, actions.ConnectID)
	case actions.ScriptsID != "":
		return app.runScripts(ctx, cmd, actions.ScriptsID)
	}
	return cmd.Help()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("kgbuilder v0.2.0")
	},
}

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			_ = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			_ = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
