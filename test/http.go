// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockRoundTripper answers HTTP calls with queued responses so alert relay
// clients can be exercised without a listener. Responses are queued per
// method and consumed in order; an unqueued call gets a 404.
//
// Example:
//
//	mock := test.NewHTTPMock()
//	mock.Expect(http.MethodPost, "", http.StatusAccepted, nil)
//	sender := &alert.WebhookSender{URL: "http://relay.local", HTTPClient: mock.HTTPClient()}
type MockRoundTripper struct {
	mu        sync.Mutex
	responses map[string][]mockResponse
	calls     []*http.Request
}

type mockResponse struct {
	status int
	body   string
	err    error
}

func NewHTTPMock() *MockRoundTripper {
	return &MockRoundTripper{responses: make(map[string][]mockResponse)}
}

// Expect queues a reply for the next call with method. A non-nil err is
// returned as a transport failure instead of a response.
func (m *MockRoundTripper) Expect(method, body string, status int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[method] = append(m.responses[method], mockResponse{status: status, body: body, err: err})
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	queue := m.responses[req.Method]
	if len(queue) == 0 {
		return reply(req, http.StatusNotFound, fmt.Sprintf("not mocked: %s %s", req.Method, req.URL.Path)), nil
	}
	next := queue[0]
	m.responses[req.Method] = queue[1:]
	if next.err != nil {
		return nil, next.err
	}
	return reply(req, next.status, next.body), nil
}

// Calls returns the requests seen so far.
func (m *MockRoundTripper) Calls() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.calls...)
}

func (m *MockRoundTripper) HTTPClient() *http.Client {
	return &http.Client{Transport: m}
}

func reply(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}
