// Package discord implements the authenticated client for Discord's
// undocumented v9 REST surface.
//
// # Overview
//
// The package is built around two pieces:
//
//   - Session: an immutable-per-step value holding the current bearer
//     token, login credentials, and the open HTTP client for one tool
//     invocation. Steps that change the token or connection return a new
//     Session rather than mutating the old one.
//
//   - Client: the API gateway. It resolves a usable token (state, then
//     token file, then browser extraction), decorates every request
//     with a realistic browser header set, and recovers from an expired
//     token with exactly one refresh-and-retry cycle per request.
//
// # Token resolution
//
// ResolveToken walks a fixed priority chain: a token already in the
// session is persisted and used; otherwise the token file is consulted;
// otherwise, when credentials are configured and headless extraction is
// allowed, the browser extractor runs. With nothing left the caller gets
// ErrManualExtraction, naming the interactive recovery procedure. The
// chain is idempotent: resolving an already-resolved session is a no-op.
//
// # Failure protocol
//
// An HTTP 401 triggers one automatic recovery: the connection is dropped,
// the cached token file deleted, the token cleared from the session, the
// resolution chain re-run, and the identical request retried once. Any
// other non-2xx response, or a second 401, surfaces as an *APIError with
// the status code and response body. Transport errors pass through
// unchanged with no retry.
//
// # Domain operations
//
// Guild, channel, message and DM-conversation queries sit on top of the
// gateway, together with client-side time-window filtering, the
// 2000-character message chunker, and fuzzy DM name resolution.
package discord
