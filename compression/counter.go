package compression

import "github.com/hupe1980/agentware/core"

// TokenCounter estimates the token cost of a message sequence. Estimates do
// not need to be exact; they only steer the compression trigger and the
// summarization input trim.
type TokenCounter func(msgs []core.Message) int

const (
	// charsPerToken is the usual English-text density for BPE tokenizers.
	charsPerToken = 4

	// messageOverheadTokens accounts for role framing and separators.
	messageOverheadTokens = 3
)

// ApproxTokenCount is the default TokenCounter. It charges one token per
// four characters of content plus a fixed per-message overhead, and counts
// tool call names and serialized arguments the same way.
func ApproxTokenCount(msgs []core.Message) int {
	total := 0
	for _, msg := range msgs {
		chars := len(msg.Content)
		for _, tc := range msg.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
		}
		total += messageOverheadTokens + (chars+charsPerToken-1)/charsPerToken
	}
	return total
}
