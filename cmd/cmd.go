// cmd.go - CLI-Einstiegspunkt fuer relayexec
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relayexec/relayexec/envconfig"
	"github.com/relayexec/relayexec/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-26s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "relayexec",
		Short:         "Package and inspect compiled executor factories",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	packageCmd := newPackageCmd()
	planCmd := newPlanCmd()
	inspectCmd := newInspectCmd()
	funcsCmd := newFuncsCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{packageCmd, planCmd, inspectCmd, funcsCmd} {
		switch cmd {
		case packageCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["RELAYEXEC_DEBUG"],
				envVars["RELAYEXEC_TARGET"],
				envVars["RELAYEXEC_MODULE_NAME"],
				envVars["RELAYEXEC_ALIGNMENT"],
			})
		case planCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["RELAYEXEC_DEBUG"],
				envVars["RELAYEXEC_TARGET"],
				envVars["RELAYEXEC_WORKSPACE_SIZE"],
			})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["RELAYEXEC_DEBUG"]})
		}
	}

	rootCmd.AddCommand(
		packageCmd,
		planCmd,
		inspectCmd,
		funcsCmd,
	)

	return rootCmd
}

// newPackageCmd - Erstellt den package Command
func newPackageCmd() *cobra.Command {
	packageCmd := &cobra.Command{
		Use:   "package",
		Short: "Build a graph executor factory and export it",
		Args:  cobra.NoArgs,
		RunE:  PackageHandler,
	}

	packageCmd.Flags().String("graph", "", "Path to the graph JSON")
	packageCmd.Flags().String("params", "", "Path to a YAML or JSON parameter file")
	packageCmd.Flags().String("lib", "", "Path to the compiled library")
	packageCmd.Flags().String("name", "", "Module name (default $RELAYEXEC_MODULE_NAME)")
	packageCmd.Flags().String("target", "", "Target string (default $RELAYEXEC_TARGET)")
	packageCmd.Flags().StringP("output", "o", "", "Output file")
	packageCmd.MarkFlagRequired("graph")  //nolint:errcheck
	packageCmd.MarkFlagRequired("lib")    //nolint:errcheck
	packageCmd.MarkFlagRequired("output") //nolint:errcheck

	return packageCmd
}

// newPlanCmd - Erstellt den plan Command
func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the AOT workspace layout of a parameter file",
		Args:  cobra.NoArgs,
		RunE:  PlanHandler,
	}

	planCmd.Flags().String("params", "", "Path to a YAML or JSON parameter file")
	planCmd.Flags().Int("inputs", 1, "Number of runner inputs")
	planCmd.Flags().Int("outputs", 1, "Number of runner outputs")
	planCmd.Flags().Int("workspace", 0, "Workspace size in bytes (default $RELAYEXEC_WORKSPACE_SIZE)")
	planCmd.Flags().String("target", "", "Target string (default $RELAYEXEC_TARGET)")
	planCmd.MarkFlagRequired("params") //nolint:errcheck

	return planCmd
}

// newInspectCmd - Erstellt den inspect Command
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show metadata and parameters of an exported factory",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}
}

// newFuncsCmd - Erstellt den funcs Command
func newFuncsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "funcs [PREFIX]",
		Short: "List registered global functions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  FuncsHandler,
	}
}
