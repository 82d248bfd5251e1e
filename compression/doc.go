// Package compression shrinks long conversation histories before a model
// call. When the estimated token usage crosses a configurable fraction of
// the usable context window, all but the most recent messages are condensed
// into one structured summary message and the messages field is replaced
// outright with [system?, summary, recent...].
//
// Token usage is read from provider-reported usage metadata when available
// (scanning from the newest assistant message backwards) and estimated
// heuristically otherwise. The cutoff between summarized and kept messages
// never separates an assistant tool-call message from its tool results.
package compression
