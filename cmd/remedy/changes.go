package main

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/app"
)

var (
	applyAll      bool
	applyYes      bool
	discardAll    bool
	discardYes    bool
	discardReason string
)

// confirmBulk asks before a bulk transition unless --yes was given. A declined
// or unavailable prompt cancels the command without an error.
func confirmBulk(label string, yes bool) bool {
	if yes {
		return true
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return false
	}
	return true
}

func changesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List staged changes and their states",
		Long: `List every staged change with its lifecycle state. Pending changes can be
applied or discarded; applied and discarded ones are kept for the record
until the next solution replaces the set.

Examples:
  remedy changes
  remedy changes --format json`,
		Args: cobra.NoArgs,
		RunE: runChanges,
	}

	addCommonFlags(cmd)
	return cmd
}

func runChanges(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	list := app.NewChangesUseCase(sess.engine).List()

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteChanges(list, resolveFormat(sess.cfg), w)
}

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [change]",
		Short: "Write a pending change to its real file",
		Long: `Apply a pending change: the proposed content is written over the real file
and the change becomes applied. The reference may be a change ID, a file URI
or a workspace path. With --all every pending change is applied, each file
independently; failures on one file do not stop the others.

Examples:
  remedy apply src/App.java
  remedy apply 6b3e8c92-4a7e-4d5e-9f14-2f6a1c0d8b77
  remedy apply --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runApply,
	}

	cmd.Flags().BoolVar(&applyAll, "all", false, "Apply every pending change")
	cmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Skip the confirmation prompt for --all")
	addCommonFlags(cmd)

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyAll == (len(args) == 1) {
		return fmt.Errorf("specify either a change reference or --all")
	}
	if applyAll && !confirmBulk("Write every pending change to its real file", applyYes) {
		fmt.Println("Apply cancelled.")
		return nil
	}

	sess, err := openSession(applyAll)
	if err != nil {
		return err
	}
	defer sess.Close()

	changes := app.NewChangesUseCase(sess.engine)

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	if applyAll {
		result := changes.ApplyAll(context.Background())
		return sess.formatter.WriteBatch(&result, resolveFormat(sess.cfg), w)
	}

	ch, err := changes.Apply(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Applied %s\n", ch.OriginalURI)
	return nil
}

func discardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discard [change]",
		Short: "Reject a pending change, leaving the real file untouched",
		Long: `Discard a pending change: its overlay entry is dropped and the real file
stays as it is. The reference may be a change ID, a file URI or a workspace
path. With --all every pending change is discarded.

Examples:
  remedy discard src/App.java
  remedy discard src/App.java --reason "wrong import replacement"
  remedy discard --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDiscard,
	}

	cmd.Flags().BoolVar(&discardAll, "all", false, "Discard every pending change")
	cmd.Flags().BoolVarP(&discardYes, "yes", "y", false, "Skip the confirmation prompt for --all")
	cmd.Flags().StringVar(&discardReason, "reason", "", "Reason kept in the change history")
	addCommonFlags(cmd)

	return cmd
}

func runDiscard(cmd *cobra.Command, args []string) error {
	if discardAll == (len(args) == 1) {
		return fmt.Errorf("specify either a change reference or --all")
	}
	if discardAll && !confirmBulk("Discard every pending change", discardYes) {
		fmt.Println("Discard cancelled.")
		return nil
	}

	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	changes := app.NewChangesUseCase(sess.engine)

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	if discardAll {
		result := changes.DiscardAll(context.Background(), discardReason)
		return sess.formatter.WriteBatch(&result, resolveFormat(sess.cfg), w)
	}

	ch, err := changes.Discard(args[0], discardReason)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Discarded %s\n", ch.OriginalURI)
	return nil
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the engine state",
		Long: `Summarize the accumulated analysis state and the staged change cycle:
versions, issue counts, change counts and overlay entries.

Examples:
  remedy status
  remedy status --format yaml`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	addCommonFlags(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		return err
	}
	defer sess.Close()

	report := sess.engine.Status()

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()
	return sess.formatter.WriteStatus(&report, resolveFormat(sess.cfg), w)
}
