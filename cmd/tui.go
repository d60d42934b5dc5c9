package cmd

import (
	"docq/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive chat interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(a.engine)
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
