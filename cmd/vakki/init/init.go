// Package initcmder provides the init command for initializing a local .vakki
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/config"
)

const (
	dirName    = ".vakki"
	configFile = "config.toml"
)

const initLongDesc string = `Initialize a new .vakki/ directory in the current working directory.

Creates a local .vakki/ directory that takes precedence over the default
~/.vakki/ directory for configuration and the local SQLite databases
(judgment vectors and the answer audit log).

A config.toml with default values is written unless one already exists.
Use --preset to start from a provider preset (openai, anthropic, ollama)
or from a config.toml fetched over HTTP(S); a preset replaces any existing
config.toml.

Examples:
  vakki init
  vakki init --preset anthropic
  vakki init --preset https://example.com/vakki/config.toml`

const initShortDesc string = "Initialize a local .vakki/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	// Resolve the preset before touching the filesystem so a bad preset
	// leaves nothing behind.
	var cfg *config.Config
	if c.preset != "" {
		cfg, err = c.loadPreset(ctx)
		if err != nil {
			return err
		}
	}

	dir := filepath.Join(cwd, dirName)
	existed := false
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		existed = true
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .vakki directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	configPath := filepath.Join(dir, configFile)
	if cfg == nil {
		_, err := os.Stat(configPath)
		switch {
		case err == nil:
			fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
			return nil
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("checking config: %w", err)
		}
		cfg = config.NewDefaultConfig()
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(c.out, "  %s Updated %s\n", cliui.SuccessMark, cliui.NameStyle.Render(configPath))
	} else {
		fmt.Fprintf(c.out, "  %s Initialized .vakki directory: %s\n", cliui.SuccessMark, cliui.NameStyle.Render(dir))
	}
	return nil
}

func (c *initCommander) loadPreset(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
