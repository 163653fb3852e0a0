package main

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/service"
)

var (
	historyLimit   int
	historyMerges  bool
	historyChanges bool
	resetYes       bool
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded merges and change events",
		Long: `Show the local journal: analysis merges and change lifecycle events, newest
first. Requires the journal to be enabled in the configuration (it is by
default).

Examples:
  remedy history
  remedy history --merges --limit 50
  remedy history --changes --format json`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records per section")
	cmd.Flags().BoolVar(&historyMerges, "merges", false, "Show only analysis merges")
	cmd.Flags().BoolVar(&historyChanges, "changes", false, "Show only change events")
	addCommonFlags(cmd)

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	format := resolveFormat(sess.cfg)
	both := historyMerges == historyChanges

	if historyMerges || both {
		merges, err := sess.engine.MergeHistory(historyLimit)
		if err != nil {
			return err
		}
		if merges == nil {
			merges = []service.MergeRecord{}
		}
		if err := sess.formatter.WriteMergeHistory(merges, format, w); err != nil {
			return err
		}
	}

	if historyChanges || both {
		events, err := sess.engine.ChangeHistory(historyLimit)
		if err != nil {
			return err
		}
		if events == nil {
			events = []service.ChangeEventRecord{}
		}
		if err := sess.formatter.WriteChangeHistory(events, format, w); err != nil {
			return err
		}
	}

	return nil
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all accumulated state",
		Long: `Clear the accumulated analysis results, the staged changes and the overlay.
This is the only operation that removes rulesets wholesale; partial analysis
runs never delete them. Real workspace files are not touched.

Examples:
  remedy reset
  remedy reset --yes`,
		Args: cobra.NoArgs,
		RunE: runReset,
	}

	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	addCommonFlags(cmd)

	return cmd
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		prompt := promptui.Prompt{
			Label:     "Clear all accumulated analysis state and staged changes",
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	snap := sess.engine.Reset()
	fmt.Printf("State cleared (analysis version %d, change version %d).\n",
		snap.AnalysisVersion, snap.ChangeVersion)
	return nil
}
