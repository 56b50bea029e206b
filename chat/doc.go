// Package chat defines the provider-agnostic conversation data model shared
// by every layer of modelmux.
//
// Core goals:
//   - Normalize messages, tool calls and token usage across vendors
//   - Keep request/response shapes minimal and transport independent
//   - Represent streaming deltas (Chunk) and reconciled results (Response)
//     with the same vocabulary
//
// Provider adapters translate their SDK types into these structures so the
// orchestration loop in package runner never branches per vendor.
package chat
