package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/signing"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// slowVersions delays reads of one collection once enabled, so two
// replicas both read before either writes.
type slowVersions struct {
	store.Backend
	on atomic.Bool
}

func (s *slowVersions) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	if s.on.Load() && collection == store.CollectionVersions {
		time.Sleep(10 * time.Millisecond)
	}
	return s.Backend.Get(ctx, collection, id)
}

// replicas returns two managers sharing one store, each with its own
// process-local locks and replay guard.
func replicas(t *testing.T) (a, b *fixture, slow *slowVersions) {
	t.Helper()
	signer, err := signing.New(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	slow = &slowVersions{Backend: store.NewMemory()}
	st := store.New(slow)
	newReplica := func() *fixture {
		m, err := NewManager(st, signer, Config{CallbackURL: testCallback},
			WithTrainer(&providers.MockTrainer{}),
			WithPresigner(providers.StaticPresigner{BaseURL: "http://objects.test"}),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		if err != nil {
			t.Fatal(err)
		}
		return &fixture{m: m, store: st, signer: signer}
	}
	return newReplica(), newReplica(), slow
}

func TestHandleCallback_CompletionRaceAcrossReplicas(t *testing.T) {
	a, b, slow := replicas(t)
	job := processingJob(t, a)
	ws := workerSigner(t)

	urls := []string{"https://cdn/A.safetensors", "https://cdn/B.safetensors"}
	envs := []*signing.Envelope{
		signCallback(t, ws, Callback{JobID: job.ID, Status: types.JobCompleted, ArtifactURL: urls[0]}),
		signCallback(t, ws, Callback{JobID: job.ID, Status: types.JobCompleted, ArtifactURL: urls[1]}),
	}

	slow.on.Store(true)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, f := range []*fixture{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = deliver(f, envs[i])
		}()
	}
	wg.Wait()
	slow.on.Store(false)

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("both replicas accepted a different artifact")
			}
			winner = i
		case !errors.Is(err, apperr.ErrConflict):
			t.Errorf("replica %d error = %v, want ErrConflict", i, err)
		}
	}
	if winner < 0 {
		t.Fatalf("no replica accepted the callback: %v", errs)
	}

	ctx := context.Background()
	v, err := a.m.GetVersion(ctx, testOwner, job.VersionID)
	if err != nil {
		t.Fatal(err)
	}
	if v.ArtifactURL != urls[winner] || v.Status != types.VersionReady {
		t.Errorf("version = %s %s, want %s ready", v.ArtifactURL, v.Status, urls[winner])
	}
	stored, _ := b.m.GetJob(ctx, testOwner, job.ID)
	if stored.Status != types.JobCompleted {
		t.Errorf("job status = %s", stored.Status)
	}
}

func TestHandleCallback_AgreeingRaceAcrossReplicas(t *testing.T) {
	a, b, slow := replicas(t)
	job := processingJob(t, a)
	ws := workerSigner(t)
	done := Callback{JobID: job.ID, Status: types.JobCompleted, ArtifactURL: "https://cdn/same.safetensors"}
	envs := []*signing.Envelope{signCallback(t, ws, done), signCallback(t, ws, done)}

	slow.on.Store(true)
	results := make([]*CallbackResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, f := range []*fixture{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = deliver(f, envs[i])
		}()
	}
	wg.Wait()
	slow.on.Store(false)

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("replica %d error = %v", i, errs[i])
		}
	}
	v, _ := a.m.GetVersion(context.Background(), testOwner, job.VersionID)
	if v.ArtifactURL != done.ArtifactURL {
		t.Errorf("artifact = %s", v.ArtifactURL)
	}
	for i, res := range results {
		if res.Outcome != OutcomeApplied && res.Outcome != OutcomeUnchanged {
			t.Errorf("replica %d outcome = %s", i, res.Outcome)
		}
	}
}
