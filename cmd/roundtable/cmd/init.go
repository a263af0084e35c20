package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roundtable-ai/roundtable/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter roundtable.yaml to the current directory.
The file documents every setting alongside its default value.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	configPath := filepath.Join(cwd, "roundtable.yaml")
	if err := config.WriteDefault(configPath, initForce); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Point completion.command.bin at your completion CLI, or switch the adapter")
	fmt.Println("  2. Run 'roundtable doctor' to verify the setup")
	fmt.Println("  3. Run 'roundtable run \"your first topic\"'")
	return nil
}
