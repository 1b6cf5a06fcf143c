// Command aibridge sends chat and vision requests to a configured LLM backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "aibridge",
		Short:         "aibridge: one client for OpenAI-compatible, Ollama and Anthropic backends",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env", nil, ".env files to load (default .env when present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level from config")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log prompt and response text")

	root.AddCommand(
		newChatCmd(&flags),
		newModelsCmd(&flags),
		newPingCmd(&flags),
	)
	return root
}
