package compression

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/model"
)

// SummaryPrefix marks the summary message so middleware and drivers can
// recognize an already-compressed history.
const SummaryPrefix = "[Context Summary]"

// DefaultSummaryPrompt instructs the summarization model to produce the
// structured eight-section summary that replaces the condensed messages.
const DefaultSummaryPrompt = `Your task is to create a detailed summary of the conversation so far,
paying close attention to the user's explicit requests and the assistant's
previous actions, so that work can continue without losing context.

Your summary must contain exactly the following sections:

1. Session Metadata: participants, tooling in use, and any identifiers needed to resume the session.
2. Primary Objective: the user's overall goal and explicit requests, in detail.
3. Key Decisions: decisions made so far and the reasoning behind them.
4. Open Questions and State: unresolved questions and the current state of the work.
5. Tool-Call Outcomes: tools invoked, their inputs in brief, and what they returned or changed.
6. Artifacts and Files Touched: files, documents, or resources examined, modified, or created.
7. Constraints and Preferences Learned: requirements, conventions, and user preferences discovered along the way.
8. Next-Step Context: everything needed to take the immediate next step.

Respond ONLY with the structured summary. Do not include any additional commentary.

<messages>
%s
</messages>`

const (
	defaultTrimTokens = 8192
)

// FormatTranscript renders messages as a numbered plain-text transcript for
// the summarization prompt.
func FormatTranscript(msgs []core.Message) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		role := "Unknown"
		switch msg.Role {
		case core.RoleSystem:
			role = "System"
		case core.RoleUser:
			role = "User"
		case core.RoleAssistant:
			role = "Assistant"
		case core.RoleTool:
			role = "Tool"
		}
		fmt.Fprintf(&b, "[%d] %s: %s", i+1, role, msg.Content)
		for _, tc := range msg.ToolCalls {
			fmt.Fprintf(&b, "\n[%d] %s requested tool %s(%s)", i+1, role, tc.Name, string(tc.Arguments))
		}
	}
	return b.String()
}

// Summarizer condenses a block of messages into one summary text. The
// engine only requires that the whole input collapses to a single string;
// how the text is produced is up to the implementation.
type Summarizer func(ctx context.Context, msgs []core.Message) (string, error)

// SummarizerOptions configures NewModelSummarizer.
type SummarizerOptions struct {
	// Prompt is the template the transcript is substituted into. Must
	// contain exactly one %s verb.
	Prompt string

	// Counter estimates token costs for the input trim.
	Counter TokenCounter

	// TrimTokens bounds the transcript sent to the summarization model.
	// Older messages are dropped first; a note records how many were cut.
	TrimTokens int
}

// NewModelSummarizer builds a Summarizer backed by a model. The condensed
// messages are rendered as a transcript, trimmed to fit the summarization
// model's input, and sent as a single user message.
func NewModelSummarizer(m model.Model, optFns ...func(o *SummarizerOptions)) Summarizer {
	opts := SummarizerOptions{
		Prompt:     DefaultSummaryPrompt,
		Counter:    ApproxTokenCount,
		TrimTokens: defaultTrimTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return func(ctx context.Context, msgs []core.Message) (string, error) {
		transcript := trimTranscript(msgs, opts.Counter, opts.TrimTokens)
		req := &model.Request{
			Messages: []core.Message{core.NewUserMessage(fmt.Sprintf(opts.Prompt, transcript))},
			Model:    m,
		}
		resp, err := m.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("summarization model: %w", err)
		}
		summary := strings.TrimSpace(resp.Message.Content)
		if summary == "" {
			return "", fmt.Errorf("summarization model returned empty content")
		}
		return summary, nil
	}
}

// trimTranscript keeps the newest messages that fit within limit tokens and
// prepends a truncation note when older ones were dropped.
func trimTranscript(msgs []core.Message, counter TokenCounter, limit int) string {
	if limit <= 0 || counter(msgs) <= limit {
		return FormatTranscript(msgs)
	}

	kept := 0
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := counter(msgs[i : i+1])
		if used+cost > limit {
			break
		}
		used += cost
		kept++
	}
	if kept == 0 && len(msgs) > 0 {
		kept = 1
	}

	selected := msgs[len(msgs)-kept:]
	truncated := len(msgs) - kept
	if truncated == 0 {
		return FormatTranscript(selected)
	}
	return fmt.Sprintf("[%d earlier messages truncated]\n\n%s", truncated, FormatTranscript(selected))
}
