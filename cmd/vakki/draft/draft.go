// Package draftcmder provides the draft command for generating formal legal
// documents.
package draftcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/config"
)

type draftCommander struct {
	instruction string
	output      string
	apiTarget   string
}

const draftLongDesc string = `Draft a formal Indian legal document from an instruction.

The draft carries headings, party placeholders, facts, legal grounds, the
relief sought and a signature block. Use --output to write it to a file.

Examples:
  vakki draft "bail application for a first time offender under section 379 IPC"
  vakki draft "legal notice for recovery of rent arrears" --output notice.md`

const draftShortDesc string = "Draft a legal document"

func NewDraftCmd() *cobra.Command {
	cmder := &draftCommander{}

	cmd := &cobra.Command{
		Use:   "draft <instruction>",
		Short: draftShortDesc,
		Long:  draftLongDesc,
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
			cmder.instruction = strings.TrimSpace(strings.Join(args, " "))
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Write the draft to this file instead of stdout")

	return cmd
}

func (c *draftCommander) run(ctx context.Context, out io.Writer) error {
	if c.instruction == "" {
		return fmt.Errorf("instruction is empty")
	}

	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	var draft string
	write := func() error {
		var err error
		draft, err = cl.Draft(ctx, c.instruction)
		return err
	}

	if cliui.IsTerminal(os.Stderr) {
		err = cliui.Step(os.Stderr, "Drafting", write)
	} else {
		err = write()
	}
	if err != nil {
		return err
	}

	if c.output == "" {
		fmt.Fprintln(out, draft)
		return nil
	}

	if err := os.WriteFile(c.output, []byte(draft+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	fmt.Fprintf(out, "  %s Wrote draft to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(c.output))
	return nil
}
