package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

func TestCreateJob_RequiresValidatedDataset(t *testing.T) {
	trainer := &providers.MockTrainer{}
	f := newFixture(t, WithTrainer(trainer))
	ctx := context.Background()
	model, _ := f.m.CreateModel(ctx, testOwner, ModelInput{Name: "m"})

	pending, _ := f.m.InitDataset(ctx, testOwner, model.ID, 15)
	invalid, _ := f.m.InitDataset(ctx, testOwner, model.ID, 3)
	f.m.ValidateDataset(ctx, testOwner, invalid.ID, 0)

	for _, ds := range []*types.Dataset{pending, invalid} {
		_, err := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID})
		if !errors.Is(err, apperr.ErrPrecondition) {
			t.Errorf("CreateJob(%s dataset) error = %v, want ErrPrecondition", ds.Status, err)
		}
	}
	if n := len(trainer.Requests()); n != 0 {
		t.Errorf("worker was called %d times for unvalidated datasets", n)
	}
	if jobs, _ := f.m.ListJobs(ctx, testOwner); len(jobs) != 0 {
		t.Errorf("jobs were created: %+v", jobs)
	}

	if _, err := f.m.CreateJob(ctx, "intruder", JobInput{DatasetID: pending.ID}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("CreateJob(foreign dataset) error = %v, want ErrNotFound", err)
	}
}

func TestCreateJob_Dispatched(t *testing.T) {
	f := newFixture(t)
	worker := newFakeWorker(t, f.signer)
	f.m.trainer = httpTrainer(t, worker.URL, f.signer, time.Second)
	ctx := context.Background()
	ds := f.validatedDataset(t)

	job, err := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID, Params: map[string]any{"steps": 1200}})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status != types.JobProcessing || job.ExternalJobID != "ext-1" || job.Attempts != 1 || job.DispatchedAt == nil {
		t.Errorf("job = %+v", job)
	}

	version, err := f.m.GetVersion(ctx, testOwner, job.VersionID)
	if err != nil {
		t.Fatal(err)
	}
	if version.Number != 1 || version.DatasetHash != ds.DatasetHash || version.Status != types.VersionTraining {
		t.Errorf("version = %+v", version)
	}

	second, err := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID})
	if err != nil {
		t.Fatal(err)
	}
	v2, _ := f.m.GetVersion(ctx, testOwner, second.VersionID)
	if v2.Number != 2 {
		t.Errorf("second version number = %d, want 2", v2.Number)
	}

	versions, _ := f.m.ListVersions(ctx, testOwner, ds.ModelID)
	if len(versions) != 2 {
		t.Errorf("ListVersions() = %d versions", len(versions))
	}
	if worker.calls.Load() != 2 {
		t.Errorf("worker calls = %d", worker.calls.Load())
	}
}

func TestCreateJob_DispatchPayload(t *testing.T) {
	trainer := &providers.MockTrainer{}
	f := newFixture(t, WithTrainer(trainer))
	ds := f.validatedDataset(t)

	job, err := f.m.CreateJob(context.Background(), testOwner, JobInput{DatasetID: ds.ID})
	if err != nil {
		t.Fatal(err)
	}
	reqs := trainer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("dispatches = %d", len(reqs))
	}
	got := reqs[0]
	if got.JobID != job.ID || got.DatasetURL != ds.PublicURL || got.CallbackURL != testCallback || got.Params == nil {
		t.Errorf("dispatch = %+v", got)
	}
}

func TestCreateJob_WorkerRejected(t *testing.T) {
	f := newFixture(t)
	worker := newFakeWorker(t, f.signer)
	worker.status.Store(http.StatusBadRequest)
	f.m.trainer = httpTrainer(t, worker.URL, f.signer, time.Second)
	ds := f.validatedDataset(t)
	ctx := context.Background()

	job, err := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID})
	if !errors.Is(err, apperr.ErrWorkerRejected) {
		t.Fatalf("CreateJob() error = %v, want ErrWorkerRejected", err)
	}
	if job == nil || job.Status != types.JobFailed || job.FinishedAt == nil {
		t.Fatalf("job = %+v", job)
	}
	if !strings.Contains(job.Error, "gpu quota exceeded") {
		t.Errorf("worker message not surfaced: %q", job.Error)
	}
	version, _ := f.m.GetVersion(ctx, testOwner, job.VersionID)
	if version.Status != types.VersionFailed {
		t.Errorf("version status = %s", version.Status)
	}
	if _, err := f.m.RetryJob(ctx, testOwner, job.ID); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("RetryJob(failed) error = %v, want ErrPrecondition", err)
	}
}

func TestCreateJob_WorkerUnavailableThenRetry(t *testing.T) {
	trainer := &providers.MockTrainer{Err: apperr.ErrWorkerUnavailable}
	f := newFixture(t, WithTrainer(trainer))
	ds := f.validatedDataset(t)
	ctx := context.Background()

	job, err := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID})
	if !errors.Is(err, apperr.ErrWorkerUnavailable) {
		t.Fatalf("CreateJob() error = %v, want ErrWorkerUnavailable", err)
	}
	if job.Status != types.JobPending || job.Error == "" {
		t.Errorf("job = %+v, want pending with error", job)
	}

	trainer.Err = nil
	retried, err := f.m.RetryJob(ctx, testOwner, job.ID)
	if err != nil {
		t.Fatalf("RetryJob() error = %v", err)
	}
	if retried.Status != types.JobProcessing || retried.Attempts != 2 || retried.Error != "" {
		t.Errorf("retried job = %+v", retried)
	}
	stored, _ := f.m.GetJob(ctx, testOwner, job.ID)
	if stored.Status != types.JobProcessing {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestCreateJob_UnclassifiedErrorStaysRetryable(t *testing.T) {
	trainer := &providers.MockTrainer{Err: errors.New("tls handshake")}
	f := newFixture(t, WithTrainer(trainer))
	ds := f.validatedDataset(t)

	job, err := f.m.CreateJob(context.Background(), testOwner, JobInput{DatasetID: ds.ID})
	if !errors.Is(err, apperr.ErrWorkerUnavailable) {
		t.Errorf("error = %v, want ErrWorkerUnavailable", err)
	}
	if job.Status != types.JobPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
}

func TestCreateJob_Timeout(t *testing.T) {
	f := newFixture(t)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer slow.Close()
	f.m.trainer = httpTrainer(t, slow.URL, f.signer, 100*time.Millisecond)
	ds := f.validatedDataset(t)

	start := time.Now()
	job, err := f.m.CreateJob(context.Background(), testOwner, JobInput{DatasetID: ds.ID})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("CreateJob() blocked for %s", elapsed)
	}
	if !errors.Is(err, apperr.ErrWorkerUnavailable) {
		t.Errorf("error = %v, want ErrWorkerUnavailable", err)
	}
	if job.Status != types.JobPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
}

func TestCreateJob_MockMode(t *testing.T) {
	f := newFixture(t)
	ds := f.validatedDataset(t)

	job, err := f.m.CreateJob(context.Background(), testOwner, JobInput{DatasetID: ds.ID})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status != types.JobPending || !job.Mock || job.Attempts != 0 {
		t.Errorf("mock job = %+v", job)
	}
}

func TestGetJob_Ownership(t *testing.T) {
	f := newFixture(t)
	ds := f.validatedDataset(t)
	ctx := context.Background()
	job, _ := f.m.CreateJob(ctx, testOwner, JobInput{DatasetID: ds.ID})

	if _, err := f.m.GetJob(ctx, "intruder", job.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetJob(other owner) error = %v", err)
	}
	if _, err := f.m.GetVersion(ctx, "intruder", job.VersionID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetVersion(other owner) error = %v", err)
	}
	if _, err := f.m.ListVersions(ctx, "intruder", ds.ModelID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ListVersions(other owner) error = %v", err)
	}
	if list, _ := f.m.ListJobs(ctx, "intruder"); len(list) != 0 {
		t.Errorf("ListJobs(other owner) = %+v", list)
	}
}
