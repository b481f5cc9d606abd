package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
)

// Report lists what Initialize did per collection.
type Report struct {
	Added    []string
	Existing []string
}

// Initialize makes sure every collection exists on the node. Collections
// the node already knows are left alone, so it can run on every start.
func Initialize(ctx context.Context, client *defra.Client, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep Report

	schemas, err := All()
	if err != nil {
		return rep, err
	}
	for _, s := range schemas {
		existed, err := apply(ctx, client, s)
		switch {
		case err != nil:
			return rep, fmt.Errorf("collection %s: %w", s.Name, err)
		case existed:
			rep.Existing = append(rep.Existing, s.Name)
			logger.Debug("collection exists", "name", s.Name)
		default:
			rep.Added = append(rep.Added, s.Name)
			logger.Info("collection added", "name", s.Name)
		}
	}
	return rep, nil
}

// apply posts one SDL document. A node that is still starting refuses the
// connection, and those failures are retried. Any answer from the node is
// final.
func apply(ctx context.Context, client *defra.Client, s Schema) (existed bool, err error) {
	err = retry.Do(
		func() error { return client.AddSchema(ctx, s.SDL) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return strings.Contains(err.Error(), "request failed")
		}),
	)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return true, nil
	}
	return false, err
}
