// Package chatcmder provides the chat command, an interactive session with
// a running vakki API server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/vakki/cmd/vakki/ask"
	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/config"
	"github.com/papercomputeco/vakki/pkg/logger"
	"github.com/papercomputeco/vakki/pkg/transcript"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("vakki> ")
)

type chatCommander struct {
	apiTarget string
	sessionID string
	debug     bool

	client *client.Client
	in     io.Reader
	out    io.Writer
	width  int
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive session with a running vakki API server.

Each question is answered with the conversation so far as context. The
session lives on the server; pass --session to resume one.

Commands inside the session:
  /summarize        Summarize the last answer
  /export <file>    Save the transcript (.md or .json)
  /new              Drop this session and start a fresh one
  /exit             Quit (Ctrl+D also works)

Examples:
  vakki chat
  vakki chat --api-target http://localhost:8081
  vakki chat --session 5b1c0d2e-...`

const chatShortDesc string = "Interactive legal research session"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to resume")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithFormat(logger.FormatPretty), logger.WithWriter(os.Stderr))

	var err error
	c.client, err = client.New(c.apiTarget)
	if err != nil {
		return err
	}

	if cliui.IsTerminal(os.Stdout) {
		c.width = cliui.TerminalWidth(os.Stdout, 80)
	}

	fmt.Fprintln(c.out)
	if c.sessionID != "" {
		fmt.Fprintf(c.out, "  %s Resuming session %s\n", cliui.SuccessMark, cliui.NameStyle.Render(c.sessionID))
	} else {
		fmt.Fprintf(c.out, "  %s New session\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Ask a question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := c.command(ctx, input)
			if err != nil {
				fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			}
			if quit {
				break
			}
			continue
		}

		if err := c.ask(ctx, input); err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) ask(ctx context.Context, query string) error {
	c.logger.Debug("sending question",
		"api_target", c.apiTarget,
		"session_id", c.sessionID,
	)

	resp, err := c.client.Answer(ctx, query, c.sessionID)
	if err != nil {
		return err
	}
	c.sessionID = resp.SessionID

	fmt.Fprint(c.out, assistantPrompt)
	askcmder.PrintAnswer(c.out, resp, c.width)
	return nil
}

// command runs a slash command and reports whether the loop should end.
func (c *chatCommander) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/summarize":
		if c.sessionID == "" {
			return false, fmt.Errorf("nothing to summarize yet")
		}
		summary, err := c.client.Summarize(ctx, "", c.sessionID)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%s\n%s\n\n", assistantPrompt, summary)
		return false, nil

	case "/export":
		return false, c.export(ctx, arg)

	case "/new":
		if c.sessionID != "" {
			if err := c.client.DeleteSession(ctx, c.sessionID); err != nil {
				return false, err
			}
		}
		c.sessionID = ""
		fmt.Fprintf(c.out, "  %s New session\n\n", cliui.SuccessMark)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
}

func (c *chatCommander) export(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /export <file>")
	}
	if c.sessionID == "" {
		return fmt.Errorf("nothing to export yet")
	}

	format, err := transcript.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}

	body, err := c.client.Transcript(ctx, c.sessionID, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	fmt.Fprintf(c.out, "  %s Saved transcript to %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(path))
	return nil
}
