package internal

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitRuntimeError indicates the container runtime was unusable
	ExitRuntimeError = 11
	// ExitRegistryError indicates an instance registry error
	ExitRegistryError = 12
	// ExitIngestError indicates the ingestion pipeline failed
	ExitIngestError = 13
)

// HandleError handles an error and returns the appropriate exit code.
// It also prints the error message to the command's error output.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var kgErr *types.KGError
	if errors.As(err, &kgErr) {
		cmd.PrintErrln("Error:", kgErr.Message)
		if kgErr.Cause != nil {
			verboseFlag := cmd.Flag("verbose")
			if verboseFlag != nil && verboseFlag.Changed {
				cmd.PrintErrln("Cause:", kgErr.Cause)
			}
		}
		return mapErrorCodeToExitCode(kgErr.Code)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

// mapErrorCodeToExitCode maps KGError codes to CLI exit codes.
func mapErrorCodeToExitCode(code types.ErrorCode) int {
	switch code {
	case types.CONFIG_LOAD_FAILED,
		types.CONFIG_VALIDATION_FAILED:
		return ExitConfigError
	case types.RUNTIME_UNAVAILABLE,
		types.IMAGE_PULL_FAILED,
		types.PORT_BIND_FAILED,
		types.CONTAINER_FAILED,
		types.INSTANCE_NOT_READY,
		types.PORTS_EXHAUSTED:
		return ExitRuntimeError
	case types.REGISTRY_OPEN_FAILED,
		types.REGISTRY_MIGRATION_FAILED,
		types.REGISTRY_QUERY_FAILED,
		types.REGISTRY_CORRUPT:
		return ExitRegistryError
	case types.ONTOLOGY_INVALID,
		types.DATASET_INVALID,
		types.INGEST_ABORTED:
		return ExitIngestError
	default:
		return ExitError
	}
}

// IsVerbose checks if verbose mode is enabled via environment variable or flag.
// Used by panic recovery, which runs before flag parsing results are available.
func IsVerbose() bool {
	if os.Getenv("KGBUILDER_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
