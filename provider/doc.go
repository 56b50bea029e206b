// Package provider defines the client abstraction the orchestration loop
// calls into, one blocking and one streaming entry point per provider.
//
// Core goals:
//   - Unify streaming + non-streaming invocation behind a single interface
//   - Classify failures into transient (retryable) and non-transient errors
//   - Keep retry handling transparent: the loop only ever sees the final
//     success or the final failure
//   - Facilitate lightweight mocking for tests (MockClient)
//
// Vendor adapters (openai, anthropic, gemini) implement Client from this
// package so higher layers remain decoupled from vendor SDKs.
package provider
