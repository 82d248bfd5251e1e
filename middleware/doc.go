// Package middleware implements the pluggable interception layer of the
// agent tool-calling loop: ordered lifecycle hooks around the agent run and
// each model call, plus nested ("onion") wrapping of the model-call and
// tool-call invocations.
//
// A Middleware is a bundle of optional capabilities. It may implement any
// subset of the lifecycle hooks (BeforeAgent, AfterAgent, BeforeModel,
// AfterModel), wrap the model or tool invocation (WrapModel, WrapTool),
// declare additional state fields with their merge policies and contribute
// tools. Absent capabilities are simply skipped.
//
// Middleware are registered in order with a Registry, which resolves all
// state field declarations into a single policy table at composition time
// and fails fast on conflicts. Lifecycle hooks run in registry order for
// before phases and reverse registry order for after phases; wrap hooks
// nest so that the first-registered middleware is outermost.
package middleware
