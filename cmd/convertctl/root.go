package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"media-converter/internal/client"
)

const defaultServer = "http://localhost:5001"

type commandContext struct {
	server   string
	jsonMode bool
	retries  int
}

func (c *commandContext) client() *client.Client {
	server := strings.TrimSpace(c.server)
	if server == "" {
		server = defaultServer
	}
	return client.New(server, client.WithRetry(c.retries, 500*time.Millisecond, 5*time.Second))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "convertctl",
		Short:         "Command line client for the media conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("CONVERTER_URL")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.server, "server", "s", server, "Base URL of the conversion service (env CONVERTER_URL)")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonMode, "json", false, "Print machine readable JSON")
	rootCmd.PersistentFlags().IntVar(&ctx.retries, "retries", 3, "Retries for failed or throttled requests")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newWaitCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))

	return rootCmd
}
