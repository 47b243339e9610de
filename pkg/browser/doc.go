// Package browser multiplexes many callers onto a single shared Playwright
// browser process.
//
// The package is built around three core concepts:
//
//  1. Manager: the process-wide owner of the browser process and all
//     contexts. Constructed explicitly at startup and shut down through
//     CloseAll; there is no self-instantiating singleton.
//  2. Context: one isolated browsing identity (cookies, cache, viewport)
//     keyed by a caller-supplied string, usually a user id. Created lazily
//     on first reference.
//  3. Page: a navigable surface within a context, keyed by name with the
//     default key "main".
//
// # Lifecycle
//
// The underlying browser process is started once, on the first call to
// EnsureStarted, and survives until CloseAll. Contexts and pages are
// created on demand: asking for a page in a context that does not exist
// yet creates the context too. Idle contexts can be reaped with CloseIdle.
//
// Callers never receive driver handles. Every operation is addressed by
// (context key, page key) and returns derived results only: byte buffers,
// cookie snapshots, status structs.
//
// # Concurrency
//
// The Manager is shared by all request handlers. Map mutation (creation,
// deletion, rename) is serialized by the manager lock; driver calls on a
// page are serialized by a per-page lock, so operations on different
// pages proceed concurrently and a stuck navigation on one page does not
// block the others.
package browser
