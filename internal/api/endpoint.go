package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is one operation of the vectra HTTP API together with the CLI
// command that calls it, so both surfaces are declared in one place.
type Endpoint interface {
	// Route reports the method and ServeMux path pattern of the handler.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler reads services from the
	// request context. Such routes answer 503 until Init has finished.
	RequiresInit() bool

	// Command builds the CLI form of the endpoint, or nil for routes only a
	// machine calls (the training webhook). serverURL is read when the
	// command runs, after flags are parsed.
	Command(serverURL func() string) *cobra.Command
}

// Grouped is implemented by endpoints whose command lives under a shared
// parent, such as "vectra api jobs list".
type Grouped interface {
	Group() string
}
