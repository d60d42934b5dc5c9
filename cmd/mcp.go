package cmd

import (
	"context"
	"fmt"
	"strings"

	"docq/internal/ingest"
	"docq/internal/rag"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing document ingestion and question answering",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s := mcpserver.NewMCPServer("docq", "1.0.0", mcpserver.WithToolCapabilities(false))

		s.AddTool(askDocumentsTool(), makeAskHandler(a.engine))
		s.AddTool(submitDocumentTool(), makeSubmitHandler(a.ingest))
		s.AddTool(documentStatusTool(), makeStatusHandler(a.ingest))

		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askDocumentsTool() mcp.Tool {
	return mcp.NewTool("ask_documents",
		mcp.WithDescription("Ask a question about the ingested documents. The answer is grounded in retrieved document chunks, which are listed as sources."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question to answer from the documents"),
		),
	)
}

func submitDocumentTool() mcp.Tool {
	return mcp.NewTool("submit_document",
		mcp.WithDescription("Submit a document for ingestion. Returns the document ID; ingestion continues in the background and can be checked with document_status."),
		mcp.WithString("title",
			mcp.Description("Document title"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full text content of the document"),
		),
	)
}

func documentStatusTool() mcp.Tool {
	return mcp.NewTool("document_status",
		mcp.WithDescription("Check the ingestion status of a previously submitted document."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID returned by submit_document"),
		),
	)
}

// --- Handler factories ---

func makeAskHandler(engine *rag.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		answer, err := engine.Ask(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatAnswer(answer)), nil
	}
}

func makeSubmitHandler(svc *ingest.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content := req.GetString("content", "")
		if content == "" {
			return mcp.NewToolResultError("content is required"), nil
		}
		title := req.GetString("title", "")

		docID, err := svc.Submit(ctx, title, content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Document submitted with ID %s. Ingestion is running in the background.", docID)), nil
	}
}

func makeStatusHandler(svc *ingest.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID := req.GetString("document_id", "")
		if docID == "" {
			return mcp.NewToolResultError("document_id is required"), nil
		}

		run, err := svc.Status(ctx, docID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}

		if run.Error != "" {
			return mcp.NewToolResultText(fmt.Sprintf("Document %s: %s (%s)", run.DocumentID, run.Status, run.Error)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Document %s: %s", run.DocumentID, run.Status)), nil
	}
}

// --- Formatting helpers ---

func formatAnswer(answer *rag.Answer) string {
	var sb strings.Builder
	sb.WriteString(answer.Answer)

	if len(answer.ContextUsed) > 0 {
		sb.WriteString("\n\n## Sources\n\n")
		for _, c := range answer.ContextUsed {
			fmt.Fprintf(&sb, "- document %s, chunk %d (distance %.4f)\n", c.DocumentID, c.SequenceIndex, c.Distance)
		}
	}
	return sb.String()
}
