// Package mcpserver hosts the Model Context Protocol JSON-RPC 2.0 stdio
// server exposing the pipeline to AI agents: four tools, the mandatory
// handshake, and the fixed JSON-RPC error codes. The wire types (Message,
// RPCError, CallToolParams/Result, ToolDefinition, ListToolsResult,
// well-known method names and error codes) back a server shellfirm-go
// hosts itself, rather than a proxy intercepting traffic to one.
package mcpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kaplanelad/shellfirm-go/internal/agentmode"
	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/projectpolicy"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
	"github.com/kaplanelad/shellfirm-go/internal/taxonomy"
)

// --- JSON-RPC 2.0 wire types ---

type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
)

const (
	MethodInitialize            = "initialize"
	MethodNotificationsInit     = "notifications/initialized"
	MethodToolsList             = "tools/list"
	MethodToolsCall             = "tools/call"
	protocolVersion             = "2024-11-05"
	serverName                  = "shellfirm"
	serverVersion               = "0.1.0"
)

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// --- Server ---

// Server hosts the four tools over a single stdio session.
type Server struct {
	Env      env.Environment
	Catalog  []ToolsCatalogEntry
	Settings shellfirmconfig.Settings
	Rules    RuleSource
}

// RuleSource supplies the pipeline options, rule catalog included, that
// the tools analyze commands with.
type RuleSource interface {
	Options() pipeline.Options
}

// ToolsCatalogEntry is unused by the fixed four-tool surface but kept so
// a future tool can be registered without reshaping the server.
type ToolsCatalogEntry struct {
	Name        string
	Description string
}

var fixedTools = []ToolDefinition{
	{
		Name:        "check_command",
		Description: "Analyze a shell command for risky patterns and return the full risk assessment.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`),
	},
	{
		Name:        "suggest_alternative",
		Description: "Suggest a safer alternative command, if one is known for the risky pattern matched.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`),
	},
	{
		Name:        "get_policy",
		Description: "Return the effective settings and any discovered project policy.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "explain_risk",
		Description: "Explain in prose why a command was flagged, including blast radius if known.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`),
	},
}

// RunStdio reads newline-delimited JSON-RPC messages from r and writes
// responses to w until r is exhausted. notifications/initialized, and any
// unknown method sent without an id, produce no response; initialize,
// tools/list and tools/call are answered whether or not they carry an id.
func (s *Server) RunStdio(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleLine(line)
		if resp == nil {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshaling response: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) handleLine(line []byte) *Message {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return &Message{JSONRPC: "2.0", Error: &RPCError{Code: RPCParseError, Message: "parse error"}}
	}
	return s.handleRequest(msg)
}

func (s *Server) handleRequest(msg Message) *Message {
	switch msg.Method {
	case MethodInitialize:
		return s.handleInitialize(msg)
	case MethodNotificationsInit:
		return nil
	case MethodToolsList:
		return s.handleToolsList(msg)
	case MethodToolsCall:
		return s.handleToolsCall(msg)
	default:
		if msg.ID == nil {
			return nil
		}
		return &Message{JSONRPC: "2.0", ID: msg.ID, Error: &RPCError{Code: RPCMethodNotFound, Message: "method not found: " + msg.Method}}
	}
}

func (s *Server) handleInitialize(msg Message) *Message {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		"serverInfo":      map[string]interface{}{"name": serverName, "version": serverVersion},
	}
	return &Message{JSONRPC: "2.0", ID: msg.ID, Result: result}
}

func (s *Server) handleToolsList(msg Message) *Message {
	return &Message{JSONRPC: "2.0", ID: msg.ID, Result: ListToolsResult{Tools: fixedTools}}
}

func (s *Server) handleToolsCall(msg Message) *Message {
	var params callToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return &Message{JSONRPC: "2.0", ID: msg.ID, Error: &RPCError{Code: RPCInvalidParams, Message: "invalid params"}}
	}

	var result CallToolResult
	switch params.Name {
	case "check_command":
		result = s.toolCheckCommand(params.Arguments)
	case "suggest_alternative":
		result = s.toolSuggestAlternative(params.Arguments)
	case "get_policy":
		result = s.toolGetPolicy()
	case "explain_risk":
		result = s.toolExplainRisk(params.Arguments)
	default:
		return &Message{JSONRPC: "2.0", ID: msg.ID, Error: &RPCError{Code: RPCInvalidParams, Message: "unknown tool: " + params.Name}}
	}
	return &Message{JSONRPC: "2.0", ID: msg.ID, Result: result}
}

func argCommand(args map[string]interface{}) (string, bool) {
	v, ok := args["command"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func jsonContent(v interface{}) CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return CallToolResult{IsError: true, Content: []ContentItem{{Type: "text", Text: "failed to marshal result: " + err.Error()}}}
	}
	return CallToolResult{Content: []ContentItem{{Type: "text", Text: string(data)}}}
}

func errorContent(message string) CallToolResult {
	return CallToolResult{IsError: true, Content: []ContentItem{{Type: "text", Text: message}}}
}

func (s *Server) toolCheckCommand(args map[string]interface{}) CallToolResult {
	command, ok := argCommand(args)
	if !ok {
		return errorContent("missing required argument: command")
	}
	assessment := agentmode.AssessCommand(s.Env, command, s.Rules.Options())
	return jsonContent(assessment)
}

func (s *Server) toolSuggestAlternative(args map[string]interface{}) CallToolResult {
	command, ok := argCommand(args)
	if !ok {
		return errorContent("missing required argument: command")
	}
	result := pipeline.AnalyzeCommand(s.Env, command, s.Rules.Options())
	if len(result.Alternatives) == 0 {
		return jsonContent(map[string]interface{}{"alternatives": []pipeline.Alternative{}})
	}
	return jsonContent(map[string]interface{}{"alternatives": result.Alternatives})
}

func (s *Server) toolGetPolicy() CallToolResult {
	opts := s.Rules.Options()
	cwd, _ := s.Env.Cwd()
	response := map[string]interface{}{
		"settings": opts.Settings,
		"groups":   describeGroups(rules.Groups(opts.Catalog)),
	}
	if policy, ok := projectpolicy.Discover(s.Env, cwd); ok {
		response["project_policy"] = policy
	}
	return jsonContent(response)
}

// describeGroups maps each group name present in the catalog to its
// taxonomy title/description, falling back to a generic entry for any
// group the embedded taxonomy doesn't know about (e.g. a group
// introduced only by custom or project-policy rules).
func describeGroups(names []string) []taxonomy.Group {
	cat, err := taxonomy.Load()
	if err != nil {
		out := make([]taxonomy.Group, 0, len(names))
		for _, n := range names {
			out = append(out, taxonomy.Group{Name: n, Title: n})
		}
		return out
	}
	out := make([]taxonomy.Group, 0, len(names))
	for _, n := range names {
		out = append(out, cat.Describe(n))
	}
	return out
}

func (s *Server) toolExplainRisk(args map[string]interface{}) CallToolResult {
	command, ok := argCommand(args)
	if !ok {
		return errorContent("missing required argument: command")
	}
	result := pipeline.AnalyzeCommand(s.Env, command, s.Rules.Options())
	assessment := agentmode.BuildAssessment(result, s.Rules.Options().Settings)
	return jsonContent(map[string]interface{}{
		"explanation":   assessment.Explanation,
		"matched_rules": assessment.MatchedRules,
		"risk_level":    assessment.RiskLevel,
		"severity":      assessment.Severity,
	})
}
