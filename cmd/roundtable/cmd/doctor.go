package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roundtable-ai/roundtable/internal/adapters/state"
	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/diagnostics"
	"github.com/roundtable-ai/roundtable/internal/persona"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and dependencies",
	Long:  "Verify that the configuration, completion adapter, session store, and persona catalog are usable.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	ok := true

	fmt.Println("Checking configuration...")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		fmt.Println()
		fmt.Println("Fix the configuration and re-run 'roundtable doctor'.")
		return fmt.Errorf("configuration check failed")
	}
	fmt.Println("  ✓ configuration valid")
	if file := viper.GetViper().ConfigFileUsed(); file != "" {
		fmt.Printf("  ✓ config file: %s\n", file)
	} else {
		fmt.Println("  ○ no config file found, using built-in defaults")
	}
	fmt.Println()

	fmt.Println("Checking completion adapter...")
	fmt.Println()
	ok = checkAdapter(cfg) && ok
	fmt.Println()

	fmt.Println("Checking session store...")
	fmt.Println()
	if store, err := state.Open(cfg.Store.Path); err != nil {
		fmt.Printf("  ✗ opening %s: %v\n", cfg.Store.Path, err)
		ok = false
	} else {
		store.Close()
		fmt.Printf("  ✓ store: %s\n", cfg.Store.Path)
	}
	fmt.Println()

	fmt.Println("Checking persona catalog...")
	fmt.Println()
	if registry, err := persona.NewRegistry(); err != nil {
		fmt.Printf("  ✗ %v\n", err)
		ok = false
	} else {
		fmt.Printf("  ✓ %d personas, %d presets\n", len(registry.All()), len(registry.PresetNames()))
	}
	fmt.Println()

	fmt.Println("System resources:")
	fmt.Println()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, line := range diagnostics.Snapshot(ctx).Summary() {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println()

	if !ok {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("All checks passed")
	return nil
}

func checkAdapter(cfg *config.Config) bool {
	switch cfg.Completion.Adapter {
	case "command":
		bin := cfg.Completion.Command.Bin
		if _, err := exec.LookPath(bin); err != nil {
			fmt.Printf("  ✗ command adapter: %s not found in PATH\n", bin)
			return false
		}
		fmt.Printf("  ✓ command adapter: %s\n", bin)
	case "http":
		fmt.Printf("  ✓ http adapter: %s (model %s)\n", cfg.Completion.HTTP.BaseURL, cfg.Completion.HTTP.Model)
		if cfg.Completion.HTTP.APIKey == "" {
			fmt.Println("  ○ api key not set (set completion.http.api_key or ROUNDTABLE_COMPLETION_HTTP_API_KEY)")
		}
	case "mock":
		fmt.Println("  ✓ mock adapter: no backend required")
	default:
		fmt.Printf("  ✗ unknown adapter %q\n", cfg.Completion.Adapter)
		return false
	}
	return true
}
