package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/internal/config"
	"github.com/remedy-kit/remedy/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a remedy configuration file",
		Long: `Generate a documented remedy configuration file with sensible defaults.

By default, creates ` + constants.ConfigFileName + ` in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Examples:
  # Create ` + constants.ConfigFileName + ` in current directory
  remedy init

  # Custom output path
  remedy init --config custom.yaml

  # Overwrite existing file
  remedy init --force

  # Generate smaller config with essential options only
  remedy init --minimal

  # Interactive setup wizard
  remedy init --interactive
  remedy init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	// Get flag values from command
	initConfigPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")

	durability := config.DurabilityStandard

	// Run interactive setup if requested
	if interactive {
		var err error
		var interactivePath string
		durability, interactivePath, err = runInteractiveSetup(initConfigPath)
		if err != nil {
			return err
		}
		initConfigPath = interactivePath
	}

	// Check if file exists
	if !force {
		if _, err := os.Stat(initConfigPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", initConfigPath)
		}
	}

	// Check if parent directory exists
	dir := filepath.Dir(initConfigPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	// Generate config content
	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.GetFullConfigTemplate(durability)
	}

	// Write to file
	if err := os.WriteFile(initConfigPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Print success message with absolute path if possible, otherwise use relative path
	displayPath := initConfigPath
	if absPath, err := filepath.Abs(initConfigPath); err == nil {
		displayPath = absPath
	}
	fmt.Printf("Created %s\n", displayPath)
	fmt.Println("\nRun 'remedy ingest <analysis-file>' to merge your first analysis result.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (config.Durability, string, error) {
	fmt.Println()
	fmt.Println("remedy Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	// Durability selection
	durabilityLevels := []struct {
		Label       string
		Description string
		Value       config.Durability
	}{
		{"Standard (recommended)", "5 snapshots, merge and change history", config.DurabilityStandard},
		{"Minimal", "3 snapshots, no history journal", config.DurabilityMinimal},
		{"Archival", "10 compressed snapshots, full history", config.DurabilityArchival},
	}

	durabilityTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	durabilityPrompt := promptui.Select{
		Label:     "How much engine history should this workspace keep?",
		Items:     durabilityLevels,
		Templates: durabilityTemplates,
	}

	durabilityIdx, _, err := durabilityPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("durability selection cancelled: %w", err)
	}
	selectedDurability := durabilityLevels[durabilityIdx].Value

	fmt.Println()

	// Output path prompt
	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}

	chosenPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("output path input cancelled: %w", err)
	}

	// Use default if empty
	if chosenPath == "" {
		chosenPath = defaultConfigPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", chosenPath)

	return selectedDurability, chosenPath, nil
}
