package main

import (
	"os"

	"github.com/joho/godotenv"

	servecmder "github.com/papercomputeco/vakki/cmd/vakki/serve"
)

func main() {
	// Provider keys may live in .env; a missing file is fine.
	_ = godotenv.Load()

	cmd := servecmder.NewServeCmd()
	cmd.Use = "vakkiapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .vakki/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
