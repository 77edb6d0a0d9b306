// Package tokenstore persists the Discord bearer token across process
// restarts.
//
// # Overview
//
// The store is a single plain-text file, by default ~/.discord_mcp_token,
// restricted to owner read/write (0600). It is a best-effort cache: the
// authoritative token lives in the session state during a call, and save
// or load failures are logged and swallowed rather than propagated.
//
// # Lifecycle
//
//   - Save writes the token, creating parent directories as needed.
//   - Load reads and trims the file content; a missing or unreadable file
//     is reported as "no token".
//   - Delete removes the file. The API gateway deletes the cached token
//     before a refresh so a freshly extracted token always overwrites a
//     stale one.
package tokenstore
