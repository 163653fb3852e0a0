package main

import (
	"fmt"
	"os"

	"github.com/remedy-kit/remedy/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "remedy",
		Short: "remedy - analysis and remediation state engine",
		Long: `remedy keeps one consistent picture of the issues a static analyzer has
found in a workspace. Successive, possibly partial, analysis results are
merged instead of replacing each other, and generated fixes are staged as
reviewable changes that can be applied or discarded per file.`,
		Version: Version,
	}

	// Add subcommands
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(solutionCmd())
	rootCmd.AddCommand(issuesCmd())
	rootCmd.AddCommand(diagnosticsCmd())
	rootCmd.AddCommand(changesCmd())
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(discardCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Println(version.GetFullVersion())
			} else {
				fmt.Printf("remedy version %s\n", version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
