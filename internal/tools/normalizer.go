// Package tools converts heterogeneous tool records into one canonical
// calling convention and executes calls against it: knowledge search,
// remote HTTP tool servers, and internal automation scripts.
package tools

import (
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// KnowledgeSearchToolName is the implicit built-in tool appended when
// retrieval is enabled for a chatbot.
const KnowledgeSearchToolName = "search_knowledge_base"

// Normalize converts enabled tool records into canonical definitions.
// When ragEnabled is true, exactly one built-in search_knowledge_base
// definition is appended regardless of whether any records exist. The
// tenant id is baked into remote-HTTP execution metadata so the
// executor can inject it into outbound calls. Pure function; never
// touches the network.
func Normalize(records []models.ToolRecord, tenantID string, ragEnabled bool) []models.CanonicalTool {
	tools := make([]models.CanonicalTool, 0, len(records)+1)

	for _, rec := range records {
		if !rec.Enabled {
			continue
		}

		params := rec.Config.Parameters
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			}
		}

		tool := models.CanonicalTool{
			Name:            rec.Name,
			Description:     rec.Config.Description,
			LLMInstructions: rec.Config.LLMInstructions,
			Parameters:      params,
		}

		switch rec.Provider {
		case models.ToolProviderRemoteHTTP:
			tool.Execution = models.ExecutionMetadata{
				Kind:     models.ExecRemoteHTTP,
				BaseURL:  rec.Config.ServerURL,
				TenantID: tenantID,
			}
		case models.ToolProviderInternalScript:
			tool.Execution = models.ExecutionMetadata{
				Kind:      models.ExecInternalScript,
				ScriptRef: rec.Config.ScriptRef,
			}
		default:
			continue
		}

		tools = append(tools, tool)
	}

	if ragEnabled {
		tools = append(tools, KnowledgeSearchTool())
	}
	return tools
}

// KnowledgeSearchTool returns the built-in knowledge base search
// definition with its fixed single-string-parameter schema.
func KnowledgeSearchTool() models.CanonicalTool {
	return models.CanonicalTool{
		Name:        KnowledgeSearchToolName,
		Description: "Search the knowledge base for relevant information to answer the user's question",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The search query to find relevant information",
				},
			},
			"required": []string{"query"},
		},
		Execution: models.ExecutionMetadata{Kind: models.ExecKnowledgeSearch},
	}
}
