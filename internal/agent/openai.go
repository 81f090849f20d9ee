package agent

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/tokens"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// ChatCompletionClient is the slice of the OpenAI SDK the loop needs.
// Tests substitute a scripted implementation.
type ChatCompletionClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return s.client.Chat.Completions.New(ctx, params)
}

// OpenAILoop drives the chat-completions protocol: tool calls arrive as
// structured tool_calls entries on the assistant message and results go
// back as role=tool messages keyed by call ID.
type OpenAILoop struct {
	client   ChatCompletionClient
	executor contracts.ToolExecutor
}

// OpenAIOption configures the loop.
type OpenAIOption func(*OpenAILoop)

// WithChatClient replaces the SDK-backed client, used in tests.
func WithChatClient(client ChatCompletionClient) OpenAIOption {
	return func(l *OpenAILoop) { l.client = client }
}

// NewOpenAILoop creates a loop bound to one API key.
func NewOpenAILoop(apiKey string, executor contracts.ToolExecutor, opts ...OpenAIOption) *OpenAILoop {
	l := &OpenAILoop{
		client:   &openaiChatService{client: openai.NewClient(option.WithAPIKey(apiKey))},
		executor: executor,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the bounded tool-calling loop against OpenAI.
func (l *OpenAILoop) Run(ctx context.Context, req *Request) *Result {
	res := &Result{
		State: StateAwaitingModel,
		Usage: models.UsageInfo{Provider: string(models.ProviderOpenAI), Model: req.Model},
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, msg := range req.History {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserMessage))

	toolParams := buildOpenAITools(req.Tools)
	maxIterations := req.maxIterations()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		res.Usage.Iterations = iteration

		params := openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(req.Model),
			Messages:    messages,
			Temperature: openai.Float(req.Temperature),
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		completion, err := l.client.New(ctx, params)
		if err != nil {
			return l.fail(res, req, err.Error())
		}

		if completion.Usage.PromptTokens == 0 && completion.Usage.CompletionTokens == 0 {
			res.Usage.TokensInput += int64(tokens.Estimate(req.SystemPrompt + req.UserMessage))
		} else {
			res.Usage.TokensInput += completion.Usage.PromptTokens
			res.Usage.TokensOutput += completion.Usage.CompletionTokens
		}

		if len(completion.Choices) == 0 {
			res.State = StateDone
			res.ReplyText = unexpectedFinishText
			res.Usage.FinishReason = "no_choices"
			res.Usage.ToolCalls = len(res.ToolExecutions)
			return res
		}
		choice := completion.Choices[0]

		if len(choice.Message.ToolCalls) > 0 {
			res.State = StateExecutingTools
			messages = append(messages, choice.Message.ToParam())

			for _, tc := range choice.Message.ToolCalls {
				args := parseToolArguments(tc.Function.Arguments)
				outcome := l.executor.Execute(ctx, tc.Function.Name, args, req.Tools, req.TenantID)

				res.ToolExecutions = append(res.ToolExecutions, models.ToolExecution{
					ToolName:  tc.Function.Name,
					Arguments: args,
					Result:    outcome,
					Status:    executionStatus(outcome),
					Iteration: iteration,
				})

				payload, err := json.Marshal(outcome)
				if err != nil {
					payload = []byte(`{"error": "unserializable tool result"}`)
				}
				messages = append(messages, openai.ToolMessage(string(payload), tc.ID))
			}

			res.State = StateAwaitingModel
			continue
		}

		res.Usage.ToolCalls = len(res.ToolExecutions)
		if completion.Usage.PromptTokens == 0 && completion.Usage.CompletionTokens == 0 {
			res.Usage.TokensOutput += int64(tokens.Estimate(choice.Message.Content))
		}

		if choice.FinishReason == "stop" {
			res.State = StateDone
			res.ReplyText = choice.Message.Content
			return res
		}

		// Truncation or filtering: finish with whatever text arrived and
		// surface the raw reason for observability.
		log.Warn().Str("finish_reason", choice.FinishReason).Msg("OpenAI loop: unexpected finish reason")
		res.State = StateDone
		res.ReplyText = choice.Message.Content
		if res.ReplyText == "" {
			res.ReplyText = unexpectedFinishText
		}
		res.Usage.FinishReason = choice.FinishReason
		return res
	}

	res.State = StateExhausted
	res.ReplyText = exhaustedReplyOpenAI
	res.Usage.MaxIterationsReached = true
	res.Usage.ToolCalls = len(res.ToolExecutions)
	return res
}

func (l *OpenAILoop) fail(res *Result, req *Request, errMsg string) *Result {
	log.Error().Str("model", req.Model).Str("error", errMsg).Msg("OpenAI loop: provider call failed")
	res.State = StateFailed
	res.ReplyText = req.fallbackFor(errMsg)
	res.Usage.Error = errMsg
	res.Usage.IsLimitError = IsLimitError(errMsg)
	res.Usage.ToolCalls = len(res.ToolExecutions)
	return res
}

// buildOpenAITools converts canonical definitions into function tool
// parameters. The canonical JSON-Schema passes through unmodified; chat
// completions accepts it as-is.
func buildOpenAITools(canonical []models.CanonicalTool) []openai.ChatCompletionToolUnionParam {
	if len(canonical) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(canonical))
	for _, t := range canonical {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  shared.FunctionParameters(t.Parameters),
				},
			},
		})
	}
	return out
}

// parseToolArguments decodes a model-supplied JSON argument string.
// Malformed JSON degrades to an empty argument object; the loop never
// aborts on bad arguments.
func parseToolArguments(raw string) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		log.Warn().Str("arguments", raw).Msg("Malformed tool arguments, using empty object")
		return map[string]interface{}{}
	}
	return args
}
