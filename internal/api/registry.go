package api

import (
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

// Registry is the ordered set of endpoints served over HTTP and exposed
// under `vectra api`.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry returns a registry holding eps in order.
func NewRegistry(eps ...Endpoint) *Registry {
	r := &Registry{}
	for _, ep := range eps {
		r.Register(ep)
	}
	return r
}

// Register appends ep. Duplicate method and path pairs panic when the routes
// are mounted, the same as http.ServeMux.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// Endpoints returns the registered endpoints in registration order.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}

// Patterns returns the sorted ServeMux patterns of every endpoint.
func (r *Registry) Patterns() []string {
	out := make([]string, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		method, path, _ := ep.Route()
		out = append(out, method+" "+path)
	}
	sort.Strings(out)
	return out
}

// RegisterRoutes mounts every endpoint on mux. Handlers of endpoints that
// need the store are wrapped with gate.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, gate func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, h := ep.Route()
		if ep.RequiresInit() && gate != nil {
			h = gate(h)
		}
		mux.HandleFunc(method+" "+path, h)
	}
}

// BuildCommands returns the `api` command. Endpoints without a command are
// skipped; Grouped endpoints share one parent per group name, created in
// the order the group is first seen.
func (r *Registry) BuildCommands(serverURL func() string) *cobra.Command {
	root := &cobra.Command{
		Use:   "api",
		Short: "Call a running vectra server",
		Long: `Each subcommand issues one HTTP request against vectra serve.

--server picks the server and --user sets the X-User-ID header.

Examples:
  vectra api health
  vectra api catalog profiles
  vectra api compile -p sdxl -b product_hero --subject "a red sneaker"
  vectra -u alice api jobs list`,
	}

	parents := map[string]*cobra.Command{}
	for _, ep := range r.endpoints {
		cmd := ep.Command(serverURL)
		if cmd == nil {
			continue
		}
		g, ok := ep.(Grouped)
		if !ok {
			root.AddCommand(cmd)
			continue
		}
		parent := parents[g.Group()]
		if parent == nil {
			parent = &cobra.Command{Use: g.Group(), Short: g.Group() + " operations"}
			parents[g.Group()] = parent
			root.AddCommand(parent)
		}
		parent.AddCommand(cmd)
	}
	return root
}
