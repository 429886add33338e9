// Package searchcmder provides the search command for raw retrieval over the
// judgment index.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/api"
	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/config"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	query     string
	topK      int
	quiet     bool
	apiTarget string
}

const searchLongDesc string = `Search the judgment index via the vakki API.

Returns the chunks nearest to the query text, without generating an answer.
Useful to check what the assistant would retrieve for a question.

Use --quiet to print only the source of each chunk, one per line.

Examples:
  vakki search "dowry death presumption"
  vakki search "section 498A" --top 10
  vakki search "arrest without warrant" --quiet`

const searchShortDesc string = "Search the judgment index"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to return (default: server search_k)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only sources, one per line")

	return cmd
}

func (c *searchCommander) run(ctx context.Context, out io.Writer) error {
	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	output, err := cl.Search(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, chunk := range output.Results {
			fmt.Fprintf(out, "%s (page %s)\n", chunk.Source, chunk.Page)
		}
		return nil
	}

	printResults(out, output, cliui.TerminalWidth(os.Stdout, 100))
	return nil
}

func printResults(out io.Writer, output *api.SearchOutput, width int) {
	fmt.Fprintf(out, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		sourceStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	previewWidth := max(width-6, 20)
	for i, chunk := range output.Results {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			sourceStyle.Render(chunk.Source),
			cliui.DimStyle.Render("page "+chunk.Page),
		)
		fmt.Fprintf(out, "  %s\n\n", previewStyle.Render(cliui.Preview(chunk.Content, previewWidth)))
	}
}
