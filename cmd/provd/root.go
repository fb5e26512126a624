package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/engine"
	"github.com/provd/provd/internal/logger"
	"github.com/provd/provd/internal/prompt"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/ui"
)

var version = "dev"

type rootFlags struct {
	planPath        string
	assumeYes       bool
	dryRun          bool
	continueOnError bool
	verbose         bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "provd",
		Short:         "provd provisions an Arch Linux machine from a declarative plan",
		Long: "provd walks a plan of idempotent units (packages, services, config\n" +
			"files, mounts) in order, checks each against the live system and applies\n" +
			"only what is missing, asking before every change unless told otherwise.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvision(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.planPath, "plan", "p", "", "Path to a plan file (defaults to the built-in bootstrap plan)")
	cmd.Flags().BoolVarP(&flags.assumeYes, "yes", "y", false, "Apply every unit without asking")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would change without applying anything")
	cmd.Flags().BoolVar(&flags.continueOnError, "continue-on-error", true, "Keep going after a unit fails")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runProvision(cmd *cobra.Command, flags *rootFlags) error {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Console: true})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	plan, err := loadPlan(flags.planPath)
	if err != nil {
		return err
	}

	opts := resolveOptions(cmd, flags, plan.Settings)

	sys := system.NewLocal()
	registry, err := newUnitRegistry(sys)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	orch := engine.New(sys, registry, prompt.New(os.Stdin, cmd.OutOrStdout()), log)
	orch.OnResult = printer.Result

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := orch.Run(ctx, plan, opts)
	printer.Summary(summary)
	if err != nil {
		return fmt.Errorf("plan %q aborted: %w", plan.Name, err)
	}
	return nil
}

func loadPlan(path string) (*config.Plan, error) {
	if path == "" {
		return config.DefaultPlan()
	}
	return config.ParsePlan(path)
}

// resolveOptions merges plan settings with command line flags. Flags the
// user set explicitly win over the plan's settings block.
func resolveOptions(cmd *cobra.Command, flags *rootFlags, settings config.Settings) engine.Options {
	opts := engine.Options{
		AssumeYes:       flags.assumeYes,
		DryRun:          flags.dryRun,
		ContinueOnError: flags.continueOnError,
	}

	if !cmd.Flags().Changed("yes") && settings.AssumeYes {
		opts.AssumeYes = true
	}
	if !cmd.Flags().Changed("dry-run") && settings.DryRun {
		opts.DryRun = true
	}
	if !cmd.Flags().Changed("continue-on-error") && settings.ContinueOnError != nil {
		opts.ContinueOnError = *settings.ContinueOnError
	}

	return opts
}
