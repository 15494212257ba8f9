package main

import (
	"github.com/credable-eng/fieldsift/internal/api"
	"github.com/credable-eng/fieldsift/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	reg := api.NewRegistry()
	for _, ep := range endpoints.All() {
		reg.Register(ep)
	}

	apiCmd := reg.BuildCommands(getServerURL)

	// --server is persistent so all subcommands inherit it.
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	rootCmd.AddCommand(apiCmd)
}
