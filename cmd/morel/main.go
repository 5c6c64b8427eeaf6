package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "morel",
	Short: "Morel — AI model routing and usage accounting",
	Long:  "Morel routes prompts from mycology-research workloads to the best-fit inference model, records every inference as an immutable usage event, and aggregates spend by researcher, module, and model.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/morel.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
