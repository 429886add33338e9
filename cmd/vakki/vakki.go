// Package vakkicmder
package vakkicmder

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/vakki/cmd/vakki/ask"
	chatcmder "github.com/papercomputeco/vakki/cmd/vakki/chat"
	configcmder "github.com/papercomputeco/vakki/cmd/vakki/config"
	draftcmder "github.com/papercomputeco/vakki/cmd/vakki/draft"
	initcmder "github.com/papercomputeco/vakki/cmd/vakki/init"
	judgmentcmder "github.com/papercomputeco/vakki/cmd/vakki/judgment"
	searchcmder "github.com/papercomputeco/vakki/cmd/vakki/search"
	servecmder "github.com/papercomputeco/vakki/cmd/vakki/serve"
	summarizecmder "github.com/papercomputeco/vakki/cmd/vakki/summarize"
	versioncmder "github.com/papercomputeco/vakki/cmd/version"
)

const vakkiLongDesc string = `Vakki is a retrieval assistant for Indian court judgments.

Questions are answered from an indexed corpus of judgments, with the sources
used and two quality scores (similarity and faithfulness) reported alongside.

Run the server and talk to it using:
  vakki serve          Run the API server (HTTP, MCP and metrics)
  vakki ask            Ask a single question
  vakki chat           Start an interactive session
  vakki judgment       Extract metadata from a judgment text file

Provider API keys (OPENAI_API_KEY, ANTHROPIC_API_KEY, GROQ_API_KEY) are read
from the environment or from a .env file in the working directory.`

const vakkiShortDesc string = "Vakki - Legal Judgment Assistant"

func NewVakkiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vakki",
		Short:        vakkiShortDesc,
		Long:         vakkiLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .vakki/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(summarizecmder.NewSummarizeCmd())
	cmd.AddCommand(draftcmder.NewDraftCmd())
	cmd.AddCommand(judgmentcmder.NewJudgmentCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv reads .env from the working directory without overriding
// variables already set. A missing file is fine.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
