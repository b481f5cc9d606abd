package providers

import (
	"context"
	"fmt"
	"sync"
)

const MockTrainerName = "mock"

// MockTrainer is a Trainer for testing. It records every dispatch.
type MockTrainer struct {
	// Err, when set, is returned from every Dispatch.
	Err error

	mu       sync.Mutex
	requests []DispatchRequest
}

// Name returns the trainer identifier.
func (m *MockTrainer) Name() string {
	return MockTrainerName
}

// Dispatch records req and answers with a derived external id.
func (m *MockTrainer) Dispatch(_ context.Context, req *DispatchRequest) (*DispatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, *req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &DispatchResult{ExternalJobID: fmt.Sprintf("mock-%s", req.JobID)}, nil
}

// Requests returns the dispatches seen so far.
func (m *MockTrainer) Requests() []DispatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DispatchRequest(nil), m.requests...)
}
