// Package askcmder provides the ask command for one-shot questions against
// a running vakki API server.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/api"
	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/config"
)

type askCommander struct {
	query     string
	sessionID string
	raw       bool
	apiTarget string
}

const askLongDesc string = `Ask a single question against the judgment corpus.

The question is sent to a running vakki API server. The answer is printed
with the judgments it drew on and its similarity and faithfulness scores.
Pass --session to continue an earlier conversation; the session id is
printed after every answer.

Examples:
  vakki ask "What are the grounds for anticipatory bail?"
  vakki ask "And who decides it?" --session 5b1c0d2e-...
  vakki ask "Define culpable homicide" --raw`

const askShortDesc string = "Ask a question about Indian court judgments"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
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
			cmder.query = strings.TrimSpace(strings.Join(args, " "))
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to continue")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer) error {
	if c.query == "" {
		return fmt.Errorf("question is empty")
	}

	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	var resp *api.AnswerResponse
	ask := func() error {
		var err error
		resp, err = cl.Answer(ctx, c.query, c.sessionID)
		return err
	}

	if cliui.IsTerminal(os.Stderr) {
		err = cliui.Step(os.Stderr, "Searching judgments", ask)
	} else {
		err = ask()
	}
	if err != nil {
		return err
	}

	width := 0
	if !c.raw && cliui.IsTerminal(os.Stdout) {
		width = cliui.TerminalWidth(os.Stdout, 80)
	}
	PrintAnswer(out, resp, width)

	return nil
}

// PrintAnswer writes an answer, its scores and the session id. A positive
// width renders the answer markdown for a terminal of that width.
func PrintAnswer(w io.Writer, resp *api.AnswerResponse, width int) {
	if resp == nil || resp.Result == nil {
		return
	}

	answer := resp.Answer
	if width > 0 {
		rendered, err := cliui.RenderMarkdown(answer, width)
		if err == nil {
			answer = rendered
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimRight(answer, "\n"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cliui.ScoreLine(resp.Similarity, resp.Faithfulness))
	if resp.SessionID != "" {
		fmt.Fprintf(w, "  %s %s\n",
			cliui.KeyStyle.Render("session:"),
			cliui.DimStyle.Render(resp.SessionID),
		)
	}
	fmt.Fprintln(w)
}
