// Command runway rolls traffic for one deployment of a serverless service:
// it sends all traffic to the latest revision, or splits it with a pinned
// canary revision while that revision still exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/core/release"
	"github.com/artpar/runway/internal/shell/journal"
	"github.com/artpar/runway/internal/shell/platform"
	"github.com/artpar/runway/internal/shell/rollout"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitInvalidInput  = 2
	ExitApplyFailed   = 3
	ExitPlatformError = 4
	ExitJournalError  = 5
)

// ErrInvalidInput is returned for unusable command line input.
var ErrInvalidInput = errors.New("invalid input")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "runway: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// CLI Error
// =============================================================================

// CLIError represents a failure with a known exit code.
type CLIError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidDirective),
		errors.Is(err, release.ErrTagMismatch),
		errors.Is(err, rollout.ErrInvalidTrafficTable):
		return ExitInvalidInput
	case errors.Is(err, rollout.ErrApplyTimeout),
		errors.Is(err, rollout.ErrApplyRejected),
		errors.Is(err, rollout.ErrConcurrentModification):
		return ExitApplyFailed
	case errors.Is(err, rollout.ErrCatalogUnavailable),
		errors.Is(err, platform.ErrServiceNotFound),
		errors.Is(err, platform.ErrUnauthorized),
		errors.Is(err, platform.ErrConnectionFailed),
		errors.Is(err, platform.ErrInvalidResponse),
		errors.Is(err, platform.ErrTimeout):
		return ExitPlatformError
	case errors.Is(err, journal.ErrConnectionFailed),
		errors.Is(err, journal.ErrMigrationFailed):
		return ExitJournalError
	default:
		// cobra usage errors
		return ExitInvalidInput
	}
}
