// Package configcmder provides the config command for managing persistent
// vakki configuration stored in the .vakki/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent vakki configuration.

Configuration is stored as config.toml in the .vakki/ directory and provides
default values for command flags. CLI flags and VAKKI_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, e.g.:
  retrieval.top_k, retrieval.history_aware,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.model, embedding.dimensions,
  llm.provider, llm.model, llm.temperature,
  history.max_turns, audit.enabled, events.provider

Use subcommands to get, set, or list configuration values:
  vakki config set <key> <value>    Set a configuration value
  vakki config get <key>            Get a configuration value
  vakki config list                 List all configuration values

Examples:
  vakki config set llm.provider anthropic
  vakki config set retrieval.top_k 8
  vakki config get llm.model
  vakki config list`

const configShortDesc string = "Manage persistent vakki configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
