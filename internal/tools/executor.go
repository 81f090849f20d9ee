package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultToolTimeout bounds each remote HTTP call and script invocation.
const DefaultToolTimeout = 30 * time.Second

// Executor dispatches canonical tool calls to the right execution
// channel. It never returns a Go error: every failure mode becomes an
// {"error": ...} result map so the agent loop can hand it back to the
// model uniformly.
type Executor struct {
	retriever contracts.KnowledgeRetriever
	scripts   contracts.ScriptRunner
	client    *http.Client
	timeout   time.Duration
	topK      int
}

// ExecutorOption configures the executor.
type ExecutorOption func(*Executor)

// WithHTTPTimeout overrides the per-call timeout, used in tests.
func WithHTTPTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
		e.client = &http.Client{Timeout: d}
	}
}

// WithTopK sets how many chunks a knowledge search returns.
func WithTopK(k int) ExecutorOption {
	return func(e *Executor) { e.topK = k }
}

// NewExecutor creates a tool executor.
func NewExecutor(retriever contracts.KnowledgeRetriever, scripts contracts.ScriptRunner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		retriever: retriever,
		scripts:   scripts,
		client:    &http.Client{Timeout: DefaultToolTimeout},
		timeout:   DefaultToolTimeout,
		topK:      5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute resolves toolName against the canonical tool list and runs it.
// search_knowledge_base is dispatched to the retriever even when absent
// from the list; it is implicit.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]interface{}, canonicalTools []models.CanonicalTool, tenantID string) map[string]interface{} {
	if args == nil {
		args = map[string]interface{}{}
	}

	if toolName == KnowledgeSearchToolName {
		return e.searchKnowledgeBase(ctx, args, tenantID)
	}

	var tool *models.CanonicalTool
	for i := range canonicalTools {
		if canonicalTools[i].Name == toolName {
			tool = &canonicalTools[i]
			break
		}
	}
	if tool == nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool '%s' not found", toolName)}
	}

	switch tool.Execution.Kind {
	case models.ExecKnowledgeSearch:
		return e.searchKnowledgeBase(ctx, args, tenantID)
	case models.ExecRemoteHTTP:
		return e.callRemote(ctx, tool, args)
	case models.ExecInternalScript:
		return e.runScript(ctx, tool, args)
	default:
		return map[string]interface{}{"error": fmt.Sprintf("Tool '%s' has unknown execution kind '%s'", toolName, tool.Execution.Kind)}
	}
}

// ── Remote HTTP tools ───────────────────────────────────────

func (e *Executor) callRemote(ctx context.Context, tool *models.CanonicalTool, args map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		payload[k] = v
	}
	payload["tenant_id"] = tool.Execution.TenantID

	body, err := json.Marshal(payload)
	if err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: %v", err)}
	}

	url := strings.TrimRight(tool.Execution.BaseURL, "/") + "/tools/" + tool.Name
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return map[string]interface{}{"error": fmt.Sprintf("Tool server timeout (%ds)", int(e.timeout.Seconds()))}
		}
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))}
	}

	var parsed interface{}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool server error: invalid JSON response: %v", err)}
	}
	if obj, ok := parsed.(map[string]interface{}); ok {
		return obj
	}
	// Non-object JSON bodies are wrapped so the contract stays a map.
	return map[string]interface{}{"success": true, "data": parsed}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ── Internal scripts ────────────────────────────────────────

func (e *Executor) runScript(ctx context.Context, tool *models.CanonicalTool, args map[string]interface{}) map[string]interface{} {
	if e.scripts == nil {
		return map[string]interface{}{"error": fmt.Sprintf("Tool '%s' has no script runner configured", tool.Name)}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, err := e.scripts.Run(callCtx, tool.Execution.ScriptRef, args)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return map[string]interface{}{"success": true, "data": value}
}

// ── Knowledge search ────────────────────────────────────────

func (e *Executor) searchKnowledgeBase(ctx context.Context, args map[string]interface{}, tenantID string) map[string]interface{} {
	query, _ := args["query"].(string)
	if e.retriever == nil {
		return map[string]interface{}{
			"success": true,
			"results": []interface{}{},
			"message": "No relevant information found in knowledge base.",
		}
	}

	chunks := e.retriever.Retrieve(ctx, tenantID, query, e.topK, 0)
	if len(chunks) == 0 {
		return map[string]interface{}{
			"success": true,
			"results": []interface{}{},
			"message": "No relevant information found in knowledge base.",
		}
	}

	results := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, map[string]interface{}{
			"content":   chunk.Content,
			"source":    chunk.SourceName,
			"relevance": fmt.Sprintf("%.0f%%", chunk.Score*100),
			"metadata":  chunk.Metadata,
		})
	}

	log.Debug().Str("tenant_id", tenantID).Int("count", len(results)).Msg("Knowledge search served")
	return map[string]interface{}{
		"success": true,
		"results": results,
		"count":   len(results),
	}
}
