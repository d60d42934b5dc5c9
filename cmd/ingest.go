package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docq/internal/store"

	"github.com/spf13/cobra"
)

var flagTitle string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		title := flagTitle
		if title == "" {
			title = filepath.Base(args[0])
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		docID, err := a.ingest.Submit(cmd.Context(), title, string(data))
		if err != nil {
			return err
		}
		fmt.Printf("submitted %s as document %s\n", title, docID)

		run, err := waitForRun(cmd.Context(), a, docID)
		if err != nil {
			return err
		}
		if run.Status == store.RunFailed {
			return fmt.Errorf("ingestion failed: %s", run.Error)
		}
		fmt.Println("ingestion completed")
		return nil
	},
}

var reingestCmd = &cobra.Command{
	Use:   "reingest <document-id>",
	Short: "Re-run ingestion for a document, resuming from its last checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ingest.Reingest(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("ingestion completed")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show the ingestion status of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.ingest.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("document %s: %s\n", run.DocumentID, run.Status)
		if run.Error != "" {
			fmt.Printf("error: %s\n", run.Error)
		}
		return nil
	},
}

// waitForRun polls until the run leaves the in-progress state.
func waitForRun(ctx context.Context, a *app, docID string) (store.Run, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		run, err := a.ingest.Status(ctx, docID)
		if err != nil {
			return store.Run{}, err
		}
		if run.Status != store.RunInProgress {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return store.Run{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func init() {
	ingestCmd.Flags().StringVar(&flagTitle, "title", "", "document title (default file name)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reingestCmd)
	rootCmd.AddCommand(statusCmd)
}
