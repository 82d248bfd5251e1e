package compression

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentware/core"
)

// DefaultTriggerRatio forces compression at 80% of the usable context.
const DefaultTriggerRatio = 0.80

// DefaultKeepRecent is the number of trailing messages preserved verbatim.
const DefaultKeepRecent = 5

// pairSearchRange bounds how far around a candidate cutoff the engine looks
// for assistant tool-call messages whose results would be separated.
const pairSearchRange = 5

// Config sizes the compression engine for one model's context window.
type Config struct {
	// ContextLimit is the model's maximum input size in tokens. Required.
	ContextLimit int

	// ReservedOutputTokens is headroom kept free for the model's own
	// reply; it is subtracted from ContextLimit before the trigger ratio
	// is applied.
	ReservedOutputTokens int

	// TriggerRatio is the fraction of usable context at which compression
	// fires. Defaults to DefaultTriggerRatio; must be in (0, 1].
	TriggerRatio float64

	// KeepRecent is the number of trailing messages preserved verbatim.
	// Defaults to DefaultKeepRecent.
	KeepRecent int

	// Counter estimates token usage when no provider-reported usage is
	// available. Defaults to ApproxTokenCount.
	Counter TokenCounter

	// Summarizer condenses the pre-keep messages into one summary text.
	// Required.
	Summarizer Summarizer
}

// Engine decides when to compress a conversation and performs the
// compression. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates the configuration and builds an engine.
// Misconfiguration is rejected here, before any turn executes.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ContextLimit <= 0 {
		return nil, fmt.Errorf("compression: context limit must be positive, got %d", cfg.ContextLimit)
	}
	if cfg.ReservedOutputTokens < 0 {
		return nil, fmt.Errorf("compression: reserved output tokens must not be negative, got %d", cfg.ReservedOutputTokens)
	}
	if cfg.ReservedOutputTokens >= cfg.ContextLimit {
		return nil, fmt.Errorf(
			"compression: reserved output tokens %d leave no usable context within limit %d",
			cfg.ReservedOutputTokens, cfg.ContextLimit,
		)
	}
	if cfg.TriggerRatio == 0 {
		cfg.TriggerRatio = DefaultTriggerRatio
	}
	if cfg.TriggerRatio <= 0 || cfg.TriggerRatio > 1 {
		return nil, fmt.Errorf("compression: trigger ratio must be in (0, 1], got %g", cfg.TriggerRatio)
	}
	if cfg.KeepRecent == 0 {
		cfg.KeepRecent = DefaultKeepRecent
	}
	if cfg.KeepRecent < 0 {
		return nil, fmt.Errorf("compression: keep-recent count must be positive, got %d", cfg.KeepRecent)
	}
	if cfg.Counter == nil {
		cfg.Counter = ApproxTokenCount
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("compression: summarizer is required")
	}
	return &Engine{cfg: cfg}, nil
}

// ContextLimit returns the configured context limit.
func (e *Engine) ContextLimit() int { return e.cfg.ContextLimit }

// EstimateUsage returns the current token usage of the conversation. It
// scans from the newest message backwards: the first assistant message
// carrying provider-reported usage wins, since that reflects what the
// provider actually charged for the whole context. Without usage metadata
// it falls back to the heuristic counter, accumulating per-message costs
// until the full sequence is scanned or the context limit is reached.
func (e *Engine) EstimateUsage(msgs []core.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == core.RoleAssistant && msg.Usage != nil && msg.Usage.TotalTokens > 0 {
			return msg.Usage.TotalTokens
		}
	}

	usage := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := e.cfg.Counter(msgs[i : i+1])
		if usage+cost > e.cfg.ContextLimit {
			return e.cfg.ContextLimit
		}
		usage += cost
	}
	return usage
}

// ShouldCompress reports whether the usage estimate for msgs crosses the
// trigger ratio of the usable context.
func (e *Engine) ShouldCompress(msgs []core.Message) bool {
	return e.shouldCompressUsage(e.EstimateUsage(msgs))
}

func (e *Engine) shouldCompressUsage(usage int) bool {
	usable := e.cfg.ContextLimit - e.cfg.ReservedOutputTokens
	return float64(usage)/float64(usable) >= e.cfg.TriggerRatio
}

// Result is the outcome of one compression pass.
type Result struct {
	// System is the preserved original system message, nil when the
	// conversation did not start with one.
	System *core.Message

	// Summary is the single structured message replacing the condensed
	// block.
	Summary core.Message

	// Kept are the trailing messages preserved verbatim.
	Kept []core.Message
}

// Messages assembles the replacement conversation:
// [system?, summary, kept...].
func (r *Result) Messages() []core.Message {
	out := make([]core.Message, 0, len(r.Kept)+2)
	if r.System != nil {
		out = append(out, *r.System)
	}
	out = append(out, r.Summary)
	out = append(out, r.Kept...)
	return out
}

// Compress condenses all but the most recent messages into one structured
// summary. An original leading system message is preserved verbatim and
// exempted from summarization. The cutoff is moved earlier as needed so no
// assistant tool-call message is separated from its tool results.
//
// It returns a nil Result when there is nothing to condense (the cutoff
// collapses to the start of the summarizable range); callers treat that as
// a no-op.
func (e *Engine) Compress(ctx context.Context, msgs []core.Message) (*Result, error) {
	var system *core.Message
	start := 0
	if len(msgs) > 0 && msgs[0].Role == core.RoleSystem {
		sys := msgs[0]
		system = &sys
		start = 1
	}

	cutoff := findSafeCutoff(msgs, e.cfg.KeepRecent)
	if cutoff < start {
		cutoff = start
	}
	if cutoff <= start {
		return nil, nil
	}

	toSummarize := msgs[start:cutoff]
	kept := append([]core.Message{}, msgs[cutoff:]...)

	summary, err := e.cfg.Summarizer(ctx, toSummarize)
	if err != nil {
		return nil, fmt.Errorf("summarize %d messages: %w", len(toSummarize), err)
	}

	return &Result{
		System:  system,
		Summary: core.NewSystemMessage(SummaryPrefix + "\n\n" + summary),
		Kept:    kept,
	}, nil
}

// findSafeCutoff returns the largest index i <= len(msgs)-keep such that
// splitting at i does not separate an assistant tool-call message from its
// tool results. Falls back to 0 when no safe split exists.
func findSafeCutoff(msgs []core.Message, keep int) int {
	if len(msgs) <= keep {
		return 0
	}
	target := len(msgs) - keep
	for i := target; i >= 0; i-- {
		if isSafeCutoff(msgs, i) {
			return i
		}
	}
	return 0
}

// isSafeCutoff checks whether splitting before index cutoff keeps every
// assistant tool-call message on the same side as its tool results. Only
// messages within pairSearchRange of the cutoff are examined.
func isSafeCutoff(msgs []core.Message, cutoff int) bool {
	if cutoff >= len(msgs) {
		return true
	}

	lo := cutoff - pairSearchRange
	if lo < 0 {
		lo = 0
	}
	hi := cutoff + pairSearchRange
	if hi > len(msgs) {
		hi = len(msgs)
	}

	for i := lo; i < hi; i++ {
		if !msgs[i].HasToolCalls() {
			continue
		}
		if cutoffSeparatesPair(msgs, i, cutoff) {
			return false
		}
	}
	return true
}

// cutoffSeparatesPair reports whether the cutoff puts the assistant message
// at aiIdx and any of its answering tool messages on opposite sides.
func cutoffSeparatesPair(msgs []core.Message, aiIdx, cutoff int) bool {
	callIDs := make(map[string]struct{})
	for _, id := range msgs[aiIdx].ToolCallIDs() {
		callIDs[id] = struct{}{}
	}
	for j := aiIdx + 1; j < len(msgs); j++ {
		if msgs[j].Role != core.RoleTool {
			continue
		}
		if _, ok := callIDs[msgs[j].ToolCallID]; !ok {
			continue
		}
		if (aiIdx < cutoff) != (j < cutoff) {
			return true
		}
	}
	return false
}
