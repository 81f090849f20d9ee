package tools_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JDRQlabs/LLM-Chatbot/internal/tools"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// fakeRetriever returns canned chunks for knowledge search tests.
type fakeRetriever struct {
	chunks []models.RetrievedChunk
	gotID  string
	gotQ   string
}

func (f *fakeRetriever) Retrieve(_ context.Context, chatbotID, query string, _ int, _ float64) []models.RetrievedChunk {
	f.gotID = chatbotID
	f.gotQ = query
	return f.chunks
}

// fakeScripts runs a single canned handler.
type fakeScripts struct {
	value interface{}
	err   error
}

func (f *fakeScripts) Run(_ context.Context, _ string, _ map[string]interface{}) (interface{}, error) {
	return f.value, f.err
}

func remoteTool(name, baseURL, tenantID string) models.CanonicalTool {
	return models.CanonicalTool{
		Name: name,
		Execution: models.ExecutionMetadata{
			Kind:     models.ExecRemoteHTTP,
			BaseURL:  baseURL,
			TenantID: tenantID,
		},
	}
}

func TestExecute_RemoteHTTPInjectsTenantID(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "order": "A-17"})
	}))
	defer srv.Close()

	e := tools.NewExecutor(nil, nil)
	canonical := []models.CanonicalTool{remoteTool("check_order", srv.URL, "cb-9")}

	result := e.Execute(context.Background(), "check_order", map[string]interface{}{"order_id": "A-17"}, canonical, "cb-9")

	if gotPath != "/tools/check_order" {
		t.Errorf("request path = %q, want /tools/check_order", gotPath)
	}
	if gotBody["tenant_id"] != "cb-9" {
		t.Errorf("payload tenant_id = %v, want cb-9", gotBody["tenant_id"])
	}
	if gotBody["order_id"] != "A-17" {
		t.Errorf("payload order_id = %v, want A-17", gotBody["order_id"])
	}
	// JSON objects come back verbatim.
	if result["ok"] != true || result["order"] != "A-17" {
		t.Errorf("result = %v, want server response verbatim", result)
	}
}

func TestExecute_RemoteHTTPWrapsNonObjectJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]interface{}{"a", "b"})
	}))
	defer srv.Close()

	e := tools.NewExecutor(nil, nil)
	canonical := []models.CanonicalTool{remoteTool("list_things", srv.URL, "cb-1")}

	result := e.Execute(context.Background(), "list_things", nil, canonical, "cb-1")

	if result["success"] != true {
		t.Errorf("result.success = %v, want true", result["success"])
	}
	if _, ok := result["data"].([]interface{}); !ok {
		t.Errorf("result.data = %v, want wrapped array", result["data"])
	}
}

func TestExecute_RemoteHTTPNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := tools.NewExecutor(nil, nil)
	canonical := []models.CanonicalTool{remoteTool("broken", srv.URL, "cb-1")}

	result := e.Execute(context.Background(), "broken", nil, canonical, "cb-1")

	errMsg, _ := result["error"].(string)
	if !strings.HasPrefix(errMsg, "Tool server error: HTTP 500") {
		t.Errorf("error = %q, want HTTP 500 tool server error", errMsg)
	}
}

func TestExecute_RemoteHTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	e := tools.NewExecutor(nil, nil, tools.WithHTTPTimeout(50*time.Millisecond))
	canonical := []models.CanonicalTool{remoteTool("slow", srv.URL, "cb-1")}

	result := e.Execute(context.Background(), "slow", nil, canonical, "cb-1")

	errMsg, _ := result["error"].(string)
	if !strings.HasPrefix(errMsg, "Tool server timeout") {
		t.Errorf("error = %q, want tool server timeout", errMsg)
	}
}

func TestExecute_ToolNotFound(t *testing.T) {
	e := tools.NewExecutor(nil, nil)

	result := e.Execute(context.Background(), "ghost", nil, nil, "cb-1")

	if result["error"] != "Tool 'ghost' not found" {
		t.Errorf("error = %v, want Tool 'ghost' not found", result["error"])
	}
}

func TestExecute_ScriptSuccessWraps(t *testing.T) {
	e := tools.NewExecutor(nil, &fakeScripts{value: map[string]interface{}{"scheduled": true}})
	canonical := []models.CanonicalTool{{
		Name:      "schedule",
		Execution: models.ExecutionMetadata{Kind: models.ExecInternalScript, ScriptRef: "callbacks/schedule"},
	}}

	result := e.Execute(context.Background(), "schedule", map[string]interface{}{"when": "tomorrow"}, canonical, "cb-1")

	if result["success"] != true {
		t.Errorf("result.success = %v, want true", result["success"])
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok || data["scheduled"] != true {
		t.Errorf("result.data = %v, want script value", result["data"])
	}
}

func TestExecute_KnowledgeSearchEmpty(t *testing.T) {
	e := tools.NewExecutor(&fakeRetriever{}, nil)

	result := e.Execute(context.Background(), tools.KnowledgeSearchToolName, map[string]interface{}{"query": "hours"}, nil, "cb-1")

	if result["message"] != "No relevant information found in knowledge base." {
		t.Errorf("message = %v, want empty-KB message", result["message"])
	}
	if result["success"] != true {
		t.Errorf("success = %v, want true", result["success"])
	}
}

func TestExecute_KnowledgeSearchFormatsRelevance(t *testing.T) {
	retriever := &fakeRetriever{chunks: []models.RetrievedChunk{
		{Content: "We open at 9am.", SourceName: "faq.pdf", Score: 0.876},
	}}
	e := tools.NewExecutor(retriever, nil)

	result := e.Execute(context.Background(), tools.KnowledgeSearchToolName, map[string]interface{}{"query": "opening hours"}, nil, "cb-7")

	if retriever.gotID != "cb-7" {
		t.Errorf("retriever chatbot id = %q, want cb-7", retriever.gotID)
	}
	if retriever.gotQ != "opening hours" {
		t.Errorf("retriever query = %q, want opening hours", retriever.gotQ)
	}
	results, ok := result["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("results = %v, want one hit", result["results"])
	}
	hit := results[0].(map[string]interface{})
	if hit["relevance"] != "88%" {
		t.Errorf("relevance = %v, want 88%%", hit["relevance"])
	}
	if hit["source"] != "faq.pdf" {
		t.Errorf("source = %v, want faq.pdf", hit["source"])
	}
	if result["count"] != 1 {
		t.Errorf("count = %v, want 1", result["count"])
	}
}
