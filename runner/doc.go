// Package runner implements the provider-agnostic orchestration loop: it
// sends a conversation to a model provider, executes any tool calls the model
// requests, feeds the results back, and repeats until the model produces a
// final answer. Both blocking (Run) and streaming (RunStream) sessions share
// the same turn semantics, including cumulative token usage across turns and
// the return-direct short circuit for tools whose output is the final answer.
package runner
