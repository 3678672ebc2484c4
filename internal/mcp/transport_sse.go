package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gopherctl/gopherctl/internal/logging"
)

// SSETransport communicates with an MCP server over a long-lived
// text/event-stream connection (the legacy MCP "HTTP+SSE" transport).
// Each event's data field carries one JSON-RPC message; requests are
// sent via a separate POST to the same endpoint, matching the framing
// already used by the OpenAI-compatible streaming content generator.
type SSETransport struct {
	url         string
	headers     map[string]string
	timeout     time.Duration
	bearerToken string

	httpClient *http.Client

	recvChan chan *JSONRPCMessage
	errChan  chan error

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc

	// onAuthError is invoked when the server responds 401/403, carrying
	// the WWW-Authenticate header value so the caller can run the OAuth
	// fallback flow and reconnect with a bearer token.
	onAuthError func(wwwAuthenticate string)
}

// NewSSETransport opens an SSE connection to url and starts reading events.
func NewSSETransport(url string, headers map[string]string, timeout time.Duration) (*SSETransport, error) {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	t := &SSETransport{
		url:        url,
		headers:    headers,
		timeout:    timeout,
		httpClient: &http.Client{},
		recvChan:   make(chan *JSONRPCMessage, 32),
		errChan:    make(chan error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	if err := t.connectStream(); err != nil {
		cancel()
		return nil, err
	}

	logging.Debug("MCP SSE transport connected", "url", url)
	return t, nil
}

// SetBearerToken sets (or clears, with "") the Authorization bearer token
// used on subsequent requests, used by the OAuth fallback flow.
func (t *SSETransport) SetBearerToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bearerToken = token
}

// SetAuthErrorHandler registers a callback invoked on 401/403 responses.
func (t *SSETransport) SetAuthErrorHandler(fn func(wwwAuthenticate string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAuthError = fn
}

func (t *SSETransport) applyAuthHeaders(req *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if t.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.bearerToken)
	}
}

// connectStream issues the GET request and starts the background reader
// that parses "data: ..." event frames into JSON-RPC messages.
func (t *SSETransport) connectStream() error {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create SSE request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	t.applyAuthHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SSE connect failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		wwwAuth := resp.Header.Get("WWW-Authenticate")
		resp.Body.Close()
		t.mu.Lock()
		handler := t.onAuthError
		t.mu.Unlock()
		if handler != nil {
			handler(wwwAuth)
		}
		return fmt.Errorf("SSE connect unauthorized (%d): %s", resp.StatusCode, wwwAuth)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return fmt.Errorf("SSE connect HTTP %d: %s", resp.StatusCode, string(body))
	}

	go t.readLoop(resp.Body)
	return nil
}

// readLoop scans "data: {...}" frames out of the event stream, the same
// frame shape the OpenAI-compatible client parses for chat completions.
func (t *SSETransport) readLoop(body io.ReadCloser) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var dataBuf bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if dataBuf.Len() > 0 {
				t.dispatchFrame(dataBuf.String())
				dataBuf.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimPrefix(line, "data:")
			payload = strings.TrimPrefix(payload, " ")
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(payload)
		default:
			// Ignore "event:", "id:", "retry:" and comment lines; MCP only
			// needs the data field.
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case t.errChan <- fmt.Errorf("SSE stream error: %w", err):
		case <-t.ctx.Done():
		}
		return
	}

	select {
	case t.errChan <- io.EOF:
	case <-t.ctx.Done():
	}
}

func (t *SSETransport) dispatchFrame(data string) {
	if data == "[DONE]" {
		return
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		logging.Warn("MCP SSE frame parse error", "error", err)
		return
	}

	select {
	case t.recvChan <- &msg:
	case <-t.ctx.Done():
	}
}

// Send posts a JSON-RPC message to the SSE endpoint. Per the legacy MCP
// HTTP+SSE transport, responses to this request arrive asynchronously on
// the open event stream rather than in the POST response body.
func (t *SSETransport) Send(msg *JSONRPCMessage) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.mu.Unlock()

	msg.JSONRPC = "2.0"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	t.applyAuthHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SSE POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		wwwAuth := resp.Header.Get("WWW-Authenticate")
		t.mu.Lock()
		handler := t.onAuthError
		t.mu.Unlock()
		if handler != nil {
			handler(wwwAuth)
		}
		return fmt.Errorf("SSE POST unauthorized (%d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE POST HTTP %d: %s", resp.StatusCode, string(body))
	}

	logging.Debug("MCP SSE message sent", "method", msg.Method, "id", msg.ID)
	return nil
}

// Receive blocks until a message arrives on the event stream.
func (t *SSETransport) Receive() (*JSONRPCMessage, error) {
	select {
	case msg := <-t.recvChan:
		return msg, nil
	case err := <-t.errChan:
		return nil, err
	case <-t.ctx.Done():
		return nil, io.EOF
	}
}

// Close terminates the event stream.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	logging.Debug("MCP SSE transport closed")
	return nil
}
