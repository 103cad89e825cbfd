// Package testutil provides testing utilities for the catalog service.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockFeed is a configurable mock feed endpoint for testing the feed loader.
type MockFeed struct {
	server *httptest.Server
	mu     sync.RWMutex
	body   string
	status int

	// RequestCount tracks how many times the feed was fetched.
	RequestCount int
}

// NewMockFeed creates a mock feed server serving the given JSON body.
func NewMockFeed(body string) *MockFeed {
	mock := &MockFeed{body: body, status: http.StatusOK}
	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		status, payload := mock.status, mock.body
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	return mock
}

// URL returns the mock feed URL.
func (m *MockFeed) URL() string { return m.server.URL }

// SetResponse replaces the served status and body.
func (m *MockFeed) SetResponse(status int, body string) {
	m.mu.Lock()
	m.status = status
	m.body = body
	m.mu.Unlock()
}

// Close shuts the server down.
func (m *MockFeed) Close() { m.server.Close() }
