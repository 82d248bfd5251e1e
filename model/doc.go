// Package model defines the normalized model invocation surface: an immutable
// Request derived via Override, a value-type Response and the Model interface
// implemented by provider adapters (see the anthropic and openai
// subpackages) and by MockModel for tests.
package model
