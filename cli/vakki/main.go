package main

import (
	"os"

	vakkicmder "github.com/papercomputeco/vakki/cmd/vakki"
)

func main() {
	cmd := vakkicmder.NewVakkiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
