package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Inspect the persona catalog",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas and team presets",
	RunE:  runPersonasList,
}

var personasSuggestCmd = &cobra.Command{
	Use:   "suggest <topic>",
	Short: "Suggest a team for a topic",
	Long: `Rank personas by how well their expertise tags match the topic and
print the suggested team.`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonasSuggest,
}

var (
	personasJSON bool
	personasTag  string
)

func init() {
	rootCmd.AddCommand(personasCmd)
	personasCmd.AddCommand(personasListCmd)
	personasCmd.AddCommand(personasSuggestCmd)

	personasCmd.PersistentFlags().BoolVar(&personasJSON, "json", false, "Output as JSON")
	personasListCmd.Flags().StringVar(&personasTag, "tag", "", "Only personas carrying this tag")
}

func runPersonasList(_ *cobra.Command, _ []string) error {
	registry, err := persona.NewRegistry()
	if err != nil {
		return err
	}

	profiles := registry.All()
	if personasTag != "" {
		var matched []core.PersonaProfile
		for _, p := range profiles {
			if p.HasTag(personasTag) {
				matched = append(matched, p)
			}
		}
		profiles = matched
	}

	if personasJSON {
		presets := make(map[string][]string)
		for _, name := range registry.PresetNames() {
			members, err := registry.Preset(name)
			if err != nil {
				return err
			}
			ids := make([]string, len(members))
			for i, p := range members {
				ids[i] = string(p.ID)
			}
			presets[name] = ids
		}
		return outputJSON(map[string]any{
			"personas": profiles,
			"presets":  presets,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.DisplayName, strings.Join(p.Tags, ", "))
	}
	w.Flush()

	// The preset footer names personas outside the filter, so a tag
	// query prints the table alone.
	if personasTag != "" {
		return nil
	}

	fmt.Println()
	fmt.Println("Presets:")
	for _, name := range registry.PresetNames() {
		members, err := registry.Preset(name)
		if err != nil {
			return err
		}
		ids := make([]string, len(members))
		for i, p := range members {
			ids[i] = string(p.ID)
		}
		fmt.Printf("  %s: %s\n", name, strings.Join(ids, ", "))
	}
	return nil
}

func runPersonasSuggest(_ *cobra.Command, args []string) error {
	registry, err := persona.NewRegistry()
	if err != nil {
		return err
	}

	team := registry.SuggestTeam(args[0])

	if personasJSON {
		return outputJSON(map[string]any{
			"topic":    args[0],
			"personas": team,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS")
	for _, p := range team {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.DisplayName, strings.Join(p.Tags, ", "))
	}
	return w.Flush()
}
