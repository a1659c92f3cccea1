package main

import (
	"github.com/spf13/cobra"

	"github.com/codecritic/codecritic/internal/catalog"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available chat models and languages",
	Run:   runModels,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, _ []string) {
	boldColor.Println("Chat models")
	for _, m := range catalog.ChatModels() {
		mode := "offline"
		if m.IsOnline {
			mode = "online"
		}
		titleColor.Printf("  %-36s", m.ID)
		dimColor.Printf("%s, %s\n", m.Name, mode)
	}

	boldColor.Println("\nLanguages")
	for _, l := range catalog.Languages() {
		titleColor.Printf("  %-36s", l.ID)
		dimColor.Printf("%s\n", l.Label)
	}
}
