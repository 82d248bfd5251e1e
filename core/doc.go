// Package core contains the shared value types of the middleware engine:
// messages, the agent state mapping, partial state updates and the per-field
// merge machinery that resolves them. Everything here is transport and
// provider agnostic; model adapters and middleware build on top of it.
package core
