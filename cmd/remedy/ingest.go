package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/app"
	"github.com/remedy-kit/remedy/domain"
)

var (
	ingestScopeFiles []string
	ingestScopeDirs  []string
	ingestFull       bool
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <analysis-file>",
		Short: "Merge an analyzer result into the accumulated state",
		Long: `Merge one analyzer output file (YAML or JSON) into the accumulated issue
state. The scope flags declare which files the analysis run covered: incidents
for in-scope files are replaced by the new result, incidents for files outside
the scope are kept. Without scope flags the scope is inferred from the files
the payload references, which can never clear issues from files the run found
clean; pass --full when the run covered the whole workspace.

Examples:
  # Whole-workspace analysis
  remedy ingest analysis.yaml --full

  # Partial run over one directory
  remedy ingest partial.yaml --scope-dir src/main

  # Partial run over two files
  remedy ingest partial.yaml --scope-file src/App.java --scope-file pom.xml

  # Machine-readable summary
  remedy ingest analysis.yaml --full --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringSliceVar(&ingestScopeFiles, "scope-file", nil,
		"File the analysis run covered (repeatable)")
	cmd.Flags().StringSliceVar(&ingestScopeDirs, "scope-dir", nil,
		"Directory the analysis run covered (repeatable)")
	cmd.Flags().BoolVar(&ingestFull, "full", false,
		"Treat the run as covering every workspace file")
	addCommonFlags(cmd)

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()
	result, err := app.NewIngestUseCase(sess.engine).Execute(ctx, domain.IngestRequest{
		Path:       args[0],
		ScopeFiles: ingestScopeFiles,
		ScopeDirs:  ingestScopeDirs,
		Full:       ingestFull,
	})
	if err != nil {
		return err
	}

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteIngest(result, resolveFormat(sess.cfg), w)
}
