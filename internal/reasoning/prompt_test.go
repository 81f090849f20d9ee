package reasoning

import (
	"strings"
	"testing"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

func promptChatbot() *models.ChatbotProfile {
	return &models.ChatbotProfile{
		SystemPrompt: "Eres el asistente de Ferretería López.",
		Persona:      "Hablas en tono cercano y profesional.",
	}
}

func TestBuildSystemPrompt_SectionOrder(t *testing.T) {
	user := &models.EndUser{DisplayName: "Ana", PhoneNumber: "+521555"}
	chunks := []models.RetrievedChunk{{Content: "Abrimos a las 9.", SourceName: "faq.md", Score: 0.8}}
	canonical := []models.CanonicalTool{{Name: "check_order", Description: "Consulta pedidos"}}

	prompt := buildSystemPrompt(promptChatbot(), user, chunks, canonical)

	markers := []string{
		"Eres el asistente de Ferretería López.",
		"Hablas en tono cercano y profesional.",
		"User Context:",
		"=== KNOWLEDGE BASE CONTEXT ===",
		"Abrimos a las 9.",
		"=== END KNOWLEDGE BASE CONTEXT ===",
		"=== HERRAMIENTAS DISPONIBLES ===",
		"• check_order: Consulta pedidos",
	}
	pos := -1
	for _, m := range markers {
		idx := strings.Index(prompt, m)
		if idx < 0 {
			t.Fatalf("prompt missing %q:\n%s", m, prompt)
		}
		if idx < pos {
			t.Errorf("marker %q out of order", m)
		}
		pos = idx
	}
}

func TestBuildSystemPrompt_NoKnowledgeBlockWithoutChunks(t *testing.T) {
	prompt := buildSystemPrompt(promptChatbot(), nil, nil, nil)

	if strings.Contains(prompt, "KNOWLEDGE BASE CONTEXT") {
		t.Error("prompt carries knowledge block with zero chunks")
	}
	if strings.Contains(prompt, "HERRAMIENTAS DISPONIBLES") {
		t.Error("prompt carries tool block with zero tools")
	}
	if strings.Contains(prompt, "User Context:") {
		t.Error("prompt carries user context for nil user")
	}
}

func TestUserContextBlock_KnownInfoOnlyWithVariables(t *testing.T) {
	bare := userContextBlock(&models.EndUser{DisplayName: "Ana", PhoneNumber: "+521555"})
	if strings.Contains(bare, "Known Info:") {
		t.Error("Known Info rendered without variables")
	}
	if !strings.Contains(bare, "Name: Ana") || !strings.Contains(bare, "Phone: +521555") {
		t.Errorf("block = %q", bare)
	}

	rich := userContextBlock(&models.EndUser{
		DisplayName: "Ana",
		Variables:   map[string]string{"plan": "premium"},
	})
	if !strings.Contains(rich, `Known Info: {"plan":"premium"}`) {
		t.Errorf("block = %q, want serialized variables", rich)
	}
}

func TestKnowledgeContextBlock_Formatting(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Content: "Primero.", SourceName: "guia.pdf", Page: 3, Score: 0.876},
		{Content: "Segundo.", SourceName: "faq.md", Score: 0.7},
	}

	block := knowledgeContextBlock(chunks)

	if !strings.Contains(block, "1. [Source: guia.pdf, Page 3, Relevance: 88%]\nPrimero.") {
		t.Errorf("first chunk formatting wrong:\n%s", block)
	}
	// Page omitted when zero.
	if !strings.Contains(block, "2. [Source: faq.md, Relevance: 70%]\nSegundo.") {
		t.Errorf("second chunk formatting wrong:\n%s", block)
	}
}

func TestToolInstructionsBlock_UsageHint(t *testing.T) {
	block := toolInstructionsBlock([]models.CanonicalTool{
		{Name: "check_order", Description: "Consulta pedidos", LLMInstructions: "Cuando pregunten por un pedido"},
		{Name: "faq", Description: "Preguntas frecuentes"},
	})

	if !strings.Contains(block, "CUÁNDO USAR: Cuando pregunten por un pedido") {
		t.Errorf("missing usage hint:\n%s", block)
	}
	if strings.Count(block, "CUÁNDO USAR:") != 1 {
		t.Errorf("usage hint rendered for tools without instructions:\n%s", block)
	}
}
