package main

import (
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry(endpoints.All(endpoints.Config{})...)

	apiCmd := registry.BuildCommands(getServerURL)

	// Persistent so all subcommands inherit it
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	rootCmd.AddCommand(apiCmd)
}
