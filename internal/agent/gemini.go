package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/JDRQlabs/LLM-Chatbot/internal/tokens"
	"github.com/JDRQlabs/LLM-Chatbot/internal/tools"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// GenerativeClient is the slice of the Gemini SDK the loop needs.
// Tests substitute a scripted implementation.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiModelService struct {
	client *genai.Client
}

func (s *geminiModelService) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return s.client.Models.GenerateContent(ctx, model, contents, config)
}

// GeminiLoop drives the content/candidate protocol: tool calls arrive
// as FunctionCall parts inside a candidate's content and results go
// back as FunctionResponse parts. Parameter schemas must be sanitized
// before submission; Gemini rejects non-standard JSON-Schema keywords.
type GeminiLoop struct {
	client   GenerativeClient
	executor contracts.ToolExecutor
}

// GeminiOption configures the loop.
type GeminiOption func(*GeminiLoop)

// WithGenerativeClient replaces the SDK-backed client, used in tests.
func WithGenerativeClient(client GenerativeClient) GeminiOption {
	return func(l *GeminiLoop) { l.client = client }
}

// NewGeminiLoop creates a loop bound to one API key.
func NewGeminiLoop(ctx context.Context, apiKey string, executor contracts.ToolExecutor, opts ...GeminiOption) (*GeminiLoop, error) {
	l := &GeminiLoop{executor: executor}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		l.client = &geminiModelService{client: client}
	}
	return l, nil
}

// Run executes the bounded tool-calling loop against Gemini.
func (l *GeminiLoop) Run(ctx context.Context, req *Request) *Result {
	res := &Result{
		State: StateAwaitingModel,
		Usage: models.UsageInfo{Provider: string(models.ProviderGoogle), Model: req.Model},
	}

	// Gemini has no system role on this path; the system prompt rides
	// in front of the user message of the current turn.
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		} else if msg.Role != "user" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	prompt := req.SystemPrompt + "\n\nUser Message: " + req.UserMessage
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if decls := buildGeminiDeclarations(req.Tools); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	maxIterations := req.maxIterations()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		res.Usage.Iterations = iteration

		resp, err := l.client.GenerateContent(ctx, req.Model, contents, config)
		if err != nil {
			return l.fail(res, req, err.Error())
		}

		if resp.UsageMetadata != nil {
			res.Usage.TokensInput += int64(resp.UsageMetadata.PromptTokenCount)
			res.Usage.TokensOutput += int64(resp.UsageMetadata.CandidatesTokenCount)
		} else {
			res.Usage.TokensInput += int64(tokens.Estimate(prompt))
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			res.State = StateDone
			res.ReplyText = unexpectedFinishText
			res.Usage.FinishReason = "no_candidates"
			res.Usage.ToolCalls = len(res.ToolExecutions)
			return res
		}
		candidate := resp.Candidates[0]

		var calls []*genai.FunctionCall
		for _, part := range candidate.Content.Parts {
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			}
		}

		if len(calls) > 0 {
			res.State = StateExecutingTools
			contents = append(contents, candidate.Content)

			responseParts := make([]*genai.Part, 0, len(calls))
			for _, fc := range calls {
				args := fc.Args
				if args == nil {
					args = map[string]interface{}{}
				}
				outcome := l.executor.Execute(ctx, fc.Name, args, req.Tools, req.TenantID)

				res.ToolExecutions = append(res.ToolExecutions, models.ToolExecution{
					ToolName:  fc.Name,
					Arguments: args,
					Result:    outcome,
					Status:    executionStatus(outcome),
					Iteration: iteration,
				})

				responseParts = append(responseParts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     fc.Name,
						Response: outcome,
					},
				})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responseParts})

			res.State = StateAwaitingModel
			continue
		}

		text := collectCandidateText(candidate)
		res.Usage.ToolCalls = len(res.ToolExecutions)
		if resp.UsageMetadata == nil {
			res.Usage.TokensOutput += int64(tokens.Estimate(text))
		}

		if candidate.FinishReason == genai.FinishReasonStop || candidate.FinishReason == "" {
			res.State = StateDone
			res.ReplyText = text
			return res
		}

		log.Warn().Str("finish_reason", string(candidate.FinishReason)).Msg("Gemini loop: unexpected finish reason")
		res.State = StateDone
		res.ReplyText = text
		if res.ReplyText == "" {
			res.ReplyText = unexpectedFinishText
		}
		res.Usage.FinishReason = string(candidate.FinishReason)
		return res
	}

	res.State = StateExhausted
	res.ReplyText = exhaustedReplyGemini
	res.Usage.MaxIterationsReached = true
	res.Usage.ToolCalls = len(res.ToolExecutions)
	return res
}

func (l *GeminiLoop) fail(res *Result, req *Request, errMsg string) *Result {
	log.Error().Str("model", req.Model).Str("error", errMsg).Msg("Gemini loop: provider call failed")
	res.State = StateFailed
	res.ReplyText = req.fallbackFor(errMsg)
	res.Usage.Error = errMsg
	res.Usage.IsLimitError = IsLimitError(errMsg)
	res.Usage.ToolCalls = len(res.ToolExecutions)
	return res
}

// buildGeminiDeclarations converts canonical tools into sanitized
// function declarations.
func buildGeminiDeclarations(canonical []models.CanonicalTool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(canonical))
	for _, t := range canonical {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if schema := toGeminiSchema(tools.SanitizeGeminiSchema(t.Parameters)); schema != nil {
			decl.Parameters = schema
		}
		decls = append(decls, decl)
	}
	return decls
}

// toGeminiSchema converts a sanitized JSON-Schema map into the SDK's
// schema type by round-tripping through JSON.
func toGeminiSchema(m map[string]interface{}) *genai.Schema {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		log.Warn().Err(err).Msg("Gemini schema conversion failed, submitting without parameters")
		return nil
	}
	return &schema
}

// collectCandidateText joins the non-thought text parts of a candidate.
func collectCandidateText(candidate *genai.Candidate) string {
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
