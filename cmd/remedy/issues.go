package main

import (
	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/app"
)

func issuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Show outstanding issues grouped by message and file",
		Long: `Show the accumulated issues as a tree: incidents sharing a message form a
group, each group lists its affected files, each file its incident lines.

Examples:
  remedy issues
  remedy issues --format json -o issues.json`,
		Args: cobra.NoArgs,
		RunE: runIssues,
	}

	addCommonFlags(cmd)
	return cmd
}

func runIssues(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	tree := app.NewIssuesUseCase(sess.engine).Tree()

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteTree(tree, resolveFormat(sess.cfg), w)
}

func diagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show outstanding issues as flat editor markers",
		Long: `Show one marker per incident, with 0-based lines and severities derived
from the violation category. This is the view an editor integration consumes.

Examples:
  remedy diagnostics
  remedy diagnostics --format json`,
		Args: cobra.NoArgs,
		RunE: runDiagnostics,
	}

	addCommonFlags(cmd)
	return cmd
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	diags := app.NewIssuesUseCase(sess.engine).Diagnostics()

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteDiagnostics(diags, resolveFormat(sess.cfg), w)
}
