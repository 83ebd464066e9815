package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshsim/meshsim/internal/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yml>",
	Short: "Validate a scenario file without running it",
	Long: `Load, expand, and validate a scenario file: check that every node
alias an event or override references resolves, that latency/loss/
bandwidth configs are well-formed, and that the topology's hub or
custom connections name real nodes.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	doc, err := scenario.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	scenario.Expand(doc)
	if err := scenario.Validate(doc); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	fmt.Println("Scenario is valid!")
	fmt.Printf("  Name:       %s\n", doc.Simulation.Name)
	fmt.Printf("  Duration:   %ds\n", doc.Simulation.DurationS)
	fmt.Printf("  Nodes:      %d\n", len(doc.Nodes))
	fmt.Printf("  Topology:   %s\n", doc.Topology.Type)
	fmt.Printf("  Events:     %d\n", len(doc.Events))
	fmt.Printf("  Metrics:    %v\n", doc.Metrics.Export)
	return nil
}
