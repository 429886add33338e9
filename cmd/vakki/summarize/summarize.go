// Package summarizecmder provides the summarize command.
package summarizecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/config"
)

type summarizeCommander struct {
	text      string
	sessionID string
	apiTarget string
}

const summarizeLongDesc string = `Summarize legal text, or the last answer of a session.

Text comes from the arguments, or from stdin when the only argument is "-".
With --session and no text, the session's last answer is summarized.

Examples:
  vakki summarize "The appellant was convicted under Section 302 ..."
  cat answer.txt | vakki summarize -
  vakki summarize --session 5b1c0d2e-...`

const summarizeShortDesc string = "Summarize legal text"

func NewSummarizeCmd() *cobra.Command {
	cmder := &summarizeCommander{}

	cmd := &cobra.Command{
		Use:   "summarize [text | -]",
		Short: summarizeShortDesc,
		Long:  summarizeLongDesc,
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
			if len(args) == 1 && args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				cmder.text = string(b)
			} else {
				cmder.text = strings.Join(args, " ")
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Summarize this session's last answer when no text is given")

	return cmd
}

func (c *summarizeCommander) run(ctx context.Context, out io.Writer) error {
	c.text = strings.TrimSpace(c.text)
	if c.text == "" && c.sessionID == "" {
		return errors.New("nothing to summarize: pass text, - for stdin, or --session")
	}

	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	var summary string
	summarize := func() error {
		var err error
		summary, err = cl.Summarize(ctx, c.text, c.sessionID)
		return err
	}

	if cliui.IsTerminal(os.Stderr) {
		err = cliui.Step(os.Stderr, "Summarizing", summarize)
	} else {
		err = summarize()
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, summary)
	return nil
}
