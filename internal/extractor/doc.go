// ABOUTME: Package documentation for browser-based token extraction
// ABOUTME: Describes the strategy chain and failure modes

// Package extractor acquires a Discord user token by driving a real
// Chrome instance through the login flow.
//
// # Strategy Chain
//
// Three strategies run in priority order once login completes:
//
//  1. Network capture: every outgoing request is inspected for an
//     Authorization header while the page loads. This is the most
//     reliable source and usually fires during login itself.
//  2. localStorage scan: the "token" key is read directly, then every
//     key containing "token" is checked for a plausibly long value.
//  3. Webpack module walk: the app's module registry is enumerated for
//     an export with a getToken function.
//
// # Failure Modes
//
// CAPTCHA challenges and multi-factor prompts cannot be completed
// without a human; in headless mode they surface as ErrCaptcha and
// ErrMFARequired so the caller can fall back to interactive
// extraction. In interactive mode the extractor simply keeps waiting
// while the user completes the challenge in the visible browser. The
// same applies to credentials: the login form is auto-filled only when
// a full email/password pair is configured, and is otherwise left to
// the human, which also covers SSO logins.
package extractor
