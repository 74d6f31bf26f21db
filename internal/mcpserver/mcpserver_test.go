package mcpserver

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/rulecontext"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

type fakeRuleSource struct{}

func (fakeRuleSource) Options() pipeline.Options {
	return pipeline.Options{
		Settings:   shellfirmconfig.Default(),
		ContextCfg: rulecontext.DefaultConfig(),
	}
}

func newTestServer() *Server {
	return &Server{Env: env.NewMock(), Rules: fakeRuleSource{}}
}

func TestHandleInitialize(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	data, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(data), `"name":"shellfirm"`) {
		t.Errorf("expected serverInfo.name shellfirm, got %s", data)
	}
}

func TestHandleNotificationHasNoResponse(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if resp != nil {
		t.Errorf("expected no response to a notification, got %+v", resp)
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`))
	data, _ := json.Marshal(resp.Result)
	for _, name := range []string{"check_command", "suggest_alternative", "get_policy", "explain_risk"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("expected tool %s in tools/list result", name)
		}
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","id":3,"method":"bogus"}`))
	if resp.Error == nil || resp.Error.Code != RPCMethodNotFound {
		t.Fatalf("expected method not found error, got %+v", resp)
	}
}

func TestHandleParseError(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`not json`))
	if resp.Error == nil || resp.Error.Code != RPCParseError {
		t.Fatalf("expected parse error, got %+v", resp)
	}
}

func TestToolCallCheckCommand(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"check_command","arguments":{"command":"echo hi"}}}`))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(CallToolResult)
	if !ok {
		t.Fatalf("expected CallToolResult, got %T", resp.Result)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected one text content item, got %+v", result.Content)
	}
}

func TestToolCallMissingArgument(t *testing.T) {
	s := newTestServer()
	resp := s.handleLine([]byte(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"check_command","arguments":{}}}`))
	result := resp.Result.(CallToolResult)
	if !result.IsError {
		t.Errorf("expected isError true for missing command argument")
	}
}

func TestRunStdioEndToEnd(t *testing.T) {
	s := newTestServer()
	input := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}
`)
	var out bytes.Buffer
	if err := s.RunStdio(input, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses (no response for notification), got %d: %v", len(lines), lines)
	}
}
