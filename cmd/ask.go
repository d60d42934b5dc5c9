package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question about your documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		question := strings.Join(args, " ")
		answer, err := a.engine.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}

		fmt.Println(answer.Answer)

		if flagSources && len(answer.ContextUsed) > 0 {
			fmt.Println()
			fmt.Println("Sources:")
			for _, c := range answer.ContextUsed {
				fmt.Printf("  %s (chunk %d, distance %.4f)\n", c.DocumentID, c.SequenceIndex, c.Distance)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&flagSources, "sources", false, "print the chunks that grounded the answer")
	rootCmd.AddCommand(askCmd)
}
