// Package svcctx carries the initialized services through request contexts.
// Endpoints import it instead of the server package, which imports them.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/activation"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/jobs"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/prompts"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
)

// Services is everything Init builds. The server swaps the whole value, so a
// request sees either all services or none.
type Services struct {
	Store       *store.Store
	Catalog     *catalog.Catalog
	Prompts     *prompts.Service
	JobManager  *jobs.Manager
	Activation  *activation.Service
	DefraClient *defra.Client // defra backend only
	Logger      *slog.Logger
}

type servicesKey struct{}

func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom returns nil before Init has completed.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// field reads one service, or its zero value when none are attached.
func field[T any](ctx context.Context, get func(*Services) T) T {
	if s := ServicesFrom(ctx); s != nil {
		return get(s)
	}
	var zero T
	return zero
}

func StoreFrom(ctx context.Context) *store.Store {
	return field(ctx, func(s *Services) *store.Store { return s.Store })
}

func CatalogFrom(ctx context.Context) *catalog.Catalog {
	return field(ctx, func(s *Services) *catalog.Catalog { return s.Catalog })
}

func PromptsFrom(ctx context.Context) *prompts.Service {
	return field(ctx, func(s *Services) *prompts.Service { return s.Prompts })
}

func JobManagerFrom(ctx context.Context) *jobs.Manager {
	return field(ctx, func(s *Services) *jobs.Manager { return s.JobManager })
}

func ActivationFrom(ctx context.Context) *activation.Service {
	return field(ctx, func(s *Services) *activation.Service { return s.Activation })
}

func DefraClientFrom(ctx context.Context) *defra.Client {
	return field(ctx, func(s *Services) *defra.Client { return s.DefraClient })
}

// LoggerFrom falls back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l := field(ctx, func(s *Services) *slog.Logger { return s.Logger }); l != nil {
		return l
	}
	return slog.Default()
}
