// Package suggestions turns a problem description into a short list of
// solution, insight and action suggestions.
//
// The Orchestrator spends one credit before generating anything; a user
// with no credits left gets an upgrade outcome and the generator is never
// called. Generation goes to a chat-completions endpoint when an API key is
// configured and falls back to keyword-matched templates otherwise.
package suggestions
