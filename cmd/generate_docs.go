package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/mcp-calendar/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the MCP tools served by mcp-calendar.
The documentation is rendered from the registered tool definitions, so it
always matches what tools/list returns. No credentials are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(stdout, stderr io.Writer, outputFile string) error {
	// The catalog does not depend on a working calendar client.
	sc := server.NewServerContext(nil)

	markdown := generateToolsMarkdown(newDispatcher(sc).ListTools())

	if outputFile == "" {
		_, err := io.WriteString(stdout, markdown)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools available when running mcp-calendar as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}
	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	sb.WriteString("| Argument | Type | Required | Description |\n")
	sb.WriteString("|---|---|---|---|\n")

	// Required arguments first, each group alphabetical.
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri := slices.Contains(tool.InputSchema.Required, names[i])
		rj := slices.Contains(tool.InputSchema.Required, names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		desc, _ := prop["description"].(string)
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", name, propertyType(prop), required, desc)
	}
	sb.WriteString("\n")

	return sb.String()
}

// propertyType renders a JSON schema type, e.g. "string" or "array of string".
func propertyType(prop map[string]any) string {
	t, ok := prop["type"].(string)
	if !ok {
		return "any"
	}
	if t == "array" {
		if items, ok := prop["items"].(map[string]any); ok {
			return "array of " + propertyType(items)
		}
	}
	return t
}
