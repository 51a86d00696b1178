package openai

import "github.com/openai/openai-go"

// exchange is one answered prompt of a session.
type exchange struct {
	prompt   string
	response string
}

func toChatMessages(instructions string, history []exchange, prompt string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(history)+2)
	if instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	for _, turn := range history {
		messages = append(messages,
			openai.UserMessage(turn.prompt),
			openai.AssistantMessage(turn.response),
		)
	}

	return append(messages, openai.UserMessage(prompt))
}
