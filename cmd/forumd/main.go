package main

import (
	"log"

	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-forum-cache/internal/cli"
)

func main() {
	injector := do.New(cli.Package)

	cmd, err := do.Invoke[*cobra.Command](injector)
	if err != nil {
		log.Fatalf("failed to create CLI command: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
