package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockReply is one scripted response. A non-nil Err is returned instead of Text.
type MockReply struct {
	Text string
	Err  error
}

// MockClient is an LLMClient for tests and offline runs. Scripted replies are
// served in order; once exhausted the client answers with ResponseText.
type MockClient struct {
	Latency      time.Duration
	ResponseText string

	mu       sync.Mutex
	script   []MockReply
	requests []ChatRequest

	requestCount atomic.Int64
}

// NewMockClient creates a mock client that echoes a fixed JSON object.
func NewMockClient(script ...MockReply) *MockClient {
	return &MockClient{
		ResponseText: `{"title": "mock title", "content": "mock content"}`,
		script:       script,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Push appends replies to the script.
func (c *MockClient) Push(replies ...MockReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, replies...)
}

// Chat serves the next scripted reply.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	reply := MockReply{Text: c.ResponseText}
	if len(c.script) > 0 {
		reply = c.script[0]
		c.script = c.script[1:]
	}
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			return result, ctx.Err()
		}
	}

	result.ExecutionTime = time.Since(start)
	if reply.Err != nil {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = reply.Err.Error()
		return result, reply.Err
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.Success = true
	result.Content = reply.Text
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(reply.Text) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	return result, nil
}

// Requests returns a copy of every request received.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

var _ LLMClient = (*MockClient)(nil)
