package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/app"
	"github.com/remedy-kit/remedy/domain"
)

func solutionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solution <solution-file>",
		Short: "Stage a generated fix as reviewable changes",
		Long: `Translate a fix-generator response into pending changes, one per workspace
file. The payload is either a structured response (JSON or YAML, carrying
original/modified/diff records) or a bare unified diff. Staging replaces the
previous change set; nothing is written to real files until a change is
applied.

Renames, file additions and deletions in the payload are dropped and
reported. A diff that does not apply cleanly is staged with the raw diff text
as its proposed content so it can still be reviewed.

Examples:
  remedy solution fixes.json
  remedy solution fixes.diff
  remedy solution fixes.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runSolution,
	}

	addCommonFlags(cmd)
	return cmd
}

func runSolution(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()
	result, err := app.NewSolutionUseCase(sess.engine).Execute(ctx, domain.SolutionRequest{
		Path: args[0],
	})
	if err != nil {
		return err
	}

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteSolution(result, resolveFormat(sess.cfg), w)
}
