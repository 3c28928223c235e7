package bot

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/socialmux/socialmux/model"
)

const defaultChatModel = openai.GPT4oMini

// personaPrompts maps the client's active button to a system prompt. Unknown
// buttons get the neutral persona.
var personaPrompts = map[string]string{
	"assistant": "You are a helpful assistant inside a social reading app. Keep answers short and conversational.",
	"summarize": "You summarize articles and discussion threads for a social reading app. Answer with a few tight sentences.",
	"explain":   "You explain concepts from articles in plain language for a social reading app. Stay concrete and brief.",
}

// OpenAIResponder generates assistant chat replies with the OpenAI chat
// completion API.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAIResponder(apiKey string, model string) *OpenAIResponder {
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIResponder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func systemPrompt(persona string) string {
	if prompt, ok := personaPrompts[persona]; ok {
		return prompt
	}
	return personaPrompts["assistant"]
}

// Respond replays the recent history under the persona's system prompt and
// returns the completion. History is oldest first, the new message is not yet
// part of it.
func (r *OpenAIResponder) Respond(ctx context.Context, persona string, history []model.ChatMessage, message string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(persona)},
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == model.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to complete chat")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
