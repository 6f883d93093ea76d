package cmd

import (
	"context"
	"fmt"
	"strings"
)

// Version is stamped at build time with -ldflags "-X gloss-relay/cmd.Version=...".
var Version = "dev"

const usage = `gloss-relay turns ASL gloss tokens into English sentences using a local Ollama model.

Usage:
  gloss-relay <command> [flags]

Commands:
  serve    Start the HTTP server
  version  Print the build version

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "version":
		fmt.Printf("gloss-relay %s\n", Version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
