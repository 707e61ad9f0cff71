package mcp

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServer_Run_InvalidMode(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.config.Mode = "invalid"

	err := server.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unsupported mode") {
		t.Errorf("Run() error = %v, expected unsupported mode", err)
	}
}

func TestServer_Run_CLIModeIsNotServed(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.config.Mode = "cli"

	if err := server.Run(context.Background()); err == nil {
		t.Error("expected cli mode to be rejected by the MCP server")
	}
}

func TestServer_Run_ServerModeListenError(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.config.Mode = "server"
	server.config.Host = "127.0.0.1"
	server.config.Port = -1

	err := server.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to listen") {
		t.Errorf("Run() error = %v, expected listen failure", err)
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	server, _ := newTestServer(t, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.serve(ctx, listener)
	}()

	url := "http://" + listener.Addr().String() + healthEndpoint
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected health status 200, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v, expected clean shutdown", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}

func TestServer_HandlerInitialize(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{` +
		`"protocolVersion":"2025-03-26","capabilities":{},` +
		`"clientInfo":{"name":"test-client","version":"1.0.0"}}}`

	req, err := http.NewRequest(http.MethodPost, ts.URL+mcpEndpoint, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("initialize request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if !strings.Contains(string(data), "test-server") {
		t.Errorf("expected server name in initialize response, got %s", data)
	}
}
