package main

import (
	"fmt"
	"io"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/core/release"
	"github.com/artpar/runway/internal/shell/catalog"
	"github.com/artpar/runway/internal/shell/journal"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "runway",
		Short: "Roll traffic between serverless revisions",
		Long: `Runway sets the traffic table of a serverless service for one deployment.
All traffic goes to the latest revision unless a pinned revision is given and
still exists, in which case traffic is split between the two.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	// Persistent flags (available to all commands)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")

	cmd.AddCommand(
		newDeployCmd(opts),
		newTrafficCmd(opts),
		newRevisionsCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// =============================================================================
// deploy
// =============================================================================

func newDeployCmd(root *rootOptions) *cobra.Command {
	var (
		latest  string
		pin     string
		version string
		tag     string
		pkg     string
		dryRun  bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Route traffic to the latest revision, holding a pinned canary if present",
		Example: `  runway deploy --latest frontend-v1-4-0
  runway deploy --latest frontend-v1-4-0 --pin frontend-v1-3-2
  runway deploy --tag next@1.4.0 --package next --pin frontend-v1-3-2 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath, root.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			latestID, releaseVersion, err := resolveLatest(a.cfg.Service.ServiceName(), latest, version, tag, pkg)
			if err != nil {
				return err
			}
			directive, err := domain.NewRolloutDirective(latestID, pin)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			result, err := a.deployer(dryRun).Deploy(ctx, directive)
			a.pushMetrics(ctx)
			if err != nil {
				return err
			}

			view := deployView{
				RolloutID: result.Record.ID,
				Service:   result.Record.Service,
				Decision:  string(result.Decision),
				Outcome:   result.Record.Outcome,
				Traffic:   result.Table,
				Previous:  result.Record.Previous,
			}
			if releaseVersion != "" && a.cfg.Release.Image != "" {
				view.Image = release.ImageReference(a.cfg.Release.Registry, a.cfg.Service.Project, a.cfg.Release.Image, releaseVersion)
			}
			return printDeploy(root.stdout, format, view)
		},
	}

	cmd.Flags().StringVar(&latest, "latest", "", "Revision that receives new traffic")
	cmd.Flags().StringVar(&pin, "pin", "", "Revision to keep serving as a canary hold")
	cmd.Flags().StringVar(&version, "version", "", "Release version; derives the latest revision name")
	cmd.Flags().StringVar(&tag, "tag", "", "Release tag (<package>@<version>); derives the latest revision name")
	cmd.Flags().StringVar(&pkg, "package", "", "Package name the release tag must match")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the traffic table without applying it")
	cmd.Flags().StringVarP(&output, "output", "o", string(OutputFormatTable), "Output format: table, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("latest", "version", "tag")
	cmd.MarkFlagsOneRequired("latest", "version", "tag")
	cmd.MarkFlagsRequiredTogether("tag", "package")

	return cmd
}

// resolveLatest returns the latest revision ID from --latest, --version or
// --tag, and the release version when one was given.
func resolveLatest(service, latest, version, tag, pkg string) (string, string, error) {
	switch {
	case latest != "":
		return latest, "", nil
	case version != "":
		return release.RevisionName(service, version), version, nil
	case tag != "":
		v, err := release.ParseTag(pkg, tag)
		if err != nil {
			return "", "", err
		}
		return release.RevisionName(service, v), v, nil
	default:
		return "", "", fmt.Errorf("%w: one of --latest, --version or --tag is required", ErrInvalidInput)
	}
}

// =============================================================================
// traffic
// =============================================================================

func newTrafficCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Print the live traffic table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath, root.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := catalog.Load(cmd.Context(), a.platform, a.cfg.Service.ServiceName())
			if err != nil {
				return err
			}

			return printTraffic(root.stdout, format, trafficView{
				Service:    snap.Service,
				Generation: snap.Generation,
				Traffic:    snap.Traffic,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(OutputFormatTable), "Output format: table, json or yaml")
	return cmd
}

// =============================================================================
// revisions
// =============================================================================

func newRevisionsCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "revisions",
		Short: "List the revisions of the service, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath, root.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := catalog.Load(cmd.Context(), a.platform, a.cfg.Service.ServiceName())
			if err != nil {
				return err
			}
			return printRevisions(root.stdout, format, snap)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(OutputFormatTable), "Output format: table, json or yaml")
	return cmd
}

// =============================================================================
// history
// =============================================================================

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit   int
		outcome string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded rollouts of the service, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			if outcome != "" && !domain.RolloutOutcome(outcome).IsValid() {
				return fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, outcome)
			}

			a, err := newApp(root.configPath, root.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.journal == nil {
				return &CLIError{
					Op:       "history",
					Err:      fmt.Errorf("%w: journal.dsn is not set", ErrInvalidConfig),
					ExitCode: ExitJournalError,
				}
			}

			records, err := a.journal.ListRollouts(cmd.Context(), a.cfg.Service.ServiceName(), journal.ListOptions{
				Limit:   limit,
				Outcome: domain.RolloutOutcome(outcome),
			})
			if err != nil {
				return &CLIError{Op: "history", Err: err, ExitCode: ExitJournalError}
			}
			return printHistory(root.stdout, format, records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListOptions().Limit, "Maximum number of rollouts to list")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only list rollouts with this outcome")
	cmd.Flags().StringVarP(&output, "output", "o", string(OutputFormatTable), "Output format: table, json or yaml")
	return cmd
}

// =============================================================================
// version
// =============================================================================

func newVersionCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of runway",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(root.stdout, "runway %s (built %s)\n", Version, BuildTime)
		},
	}
}
