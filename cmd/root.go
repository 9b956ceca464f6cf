// Package cmd implements the parley command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - conversational AI backend with session memory and retrieval",
	Long: `Parley serves a conversational AI HTTP API with per-session memory,
document ingestion into a per-session knowledge base, and web tools.

Session history lives in Redis with a Postgres durable tier; uploaded
documents are chunked, embedded, and retrievable within their session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
