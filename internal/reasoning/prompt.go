package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// buildSystemPrompt assembles the full system prompt in fixed order:
// base prompt, persona, user context, knowledge base context (when any
// chunks were retrieved), and tool usage instructions (when any tools
// are available).
func buildSystemPrompt(chatbot *models.ChatbotProfile, user *models.EndUser, chunks []models.RetrievedChunk, canonical []models.CanonicalTool) string {
	var sb strings.Builder
	sb.WriteString(chatbot.SystemPrompt)
	sb.WriteString("\n")
	sb.WriteString(chatbot.Persona)
	sb.WriteString("\n")
	sb.WriteString(userContextBlock(user))
	if block := knowledgeContextBlock(chunks); block != "" {
		sb.WriteString("\n")
		sb.WriteString(block)
	}
	sb.WriteString(toolInstructionsBlock(canonical))
	return sb.String()
}

func userContextBlock(user *models.EndUser) string {
	if user == nil {
		return ""
	}
	block := fmt.Sprintf("\n\nUser Context:\nName: %s\nPhone: %s", user.DisplayName, user.PhoneNumber)
	if len(user.Variables) > 0 {
		if raw, err := json.Marshal(user.Variables); err == nil {
			block += "\nKnown Info: " + string(raw)
		}
	}
	return block
}

// knowledgeContextBlock renders retrieved chunks, or returns "" when
// there are none so the prompt carries no empty section.
func knowledgeContextBlock(chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n=== KNOWLEDGE BASE CONTEXT ===\n")
	sb.WriteString("Use the following information to answer the user's question. ")
	sb.WriteString("Only use this information if it's relevant to the query.\n\n")

	for i, chunk := range chunks {
		source := "[Source: " + chunk.SourceName
		if chunk.Page > 0 {
			source += fmt.Sprintf(", Page %d", chunk.Page)
		}
		source += fmt.Sprintf(", Relevance: %.0f%%]", chunk.Score*100)
		sb.WriteString(fmt.Sprintf("%d. %s\n%s\n\n", i+1, source, chunk.Content))
	}

	sb.WriteString("=== END KNOWLEDGE BASE CONTEXT ===\n")
	return sb.String()
}

// toolInstructionsBlock auto-generates usage guidance from each tool's
// description and llm_instructions hint. Empty when no tools exist.
func toolInstructionsBlock(canonical []models.CanonicalTool) string {
	if len(canonical) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n=== HERRAMIENTAS DISPONIBLES ===\n")
	sb.WriteString("Tienes acceso a las siguientes herramientas. Úsalas cuando sea apropiado:\n\n")

	for _, tool := range canonical {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", tool.Name, tool.Description))
		if tool.LLMInstructions != "" {
			sb.WriteString(fmt.Sprintf("  CUÁNDO USAR: %s\n", tool.LLMInstructions))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
