// ABOUTME: Package documentation for the MCP tool surface
// ABOUTME: Describes tools, the invocation gate, and the session lifecycle

// Package mcpserver exposes Discord operations as MCP tools over stdio.
//
// # Tools
//
// Seven tools are registered:
//
//   - get_servers: list the account's servers
//   - get_channels: list text-capable channels of a server
//   - read_messages: recent messages from a channel
//   - send_message: post to a channel, chunking long content
//   - send_message_with_attachment: post with one file attached
//   - get_dm_conversations: list direct-message conversations
//   - read_dm_messages: recent messages from a DM found by name
//
// # Invocation Gate
//
// A single mutex serializes tool execution: at most one invocation
// touches the network at a time, so chunked sends cannot interleave and
// a token refresh cannot race a concurrent call. Argument validation
// runs before the gate is taken; invalid calls never block others.
//
// # Session Lifecycle
//
// Each invocation builds a fresh discord.Session seeded with the
// token cached from previous invocations, runs the operation, and tears
// the session down whatever the outcome. A token resolved during the
// call (file load or browser extraction) is cached for the next one.
//
// # Results
//
// Tool results are JSON text. Domain and validation failures are
// reported as tool errors rather than protocol errors so the calling
// model can read and react to them.
package mcpserver
