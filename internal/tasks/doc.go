// Package tasks orchestrates todo operations between the API client, the session and the local cache.
//
// # Core Operations
//
// [Board] exposes the workflows the CLI drives:
//
//  1. [Board.Refresh] : replace the cached list with the server's
//  2. [Board.Create], [Board.Edit], [Board.Toggle], [Board.Delete] : mutate one todo
//  3. [Board.Items] : page through the cache with an optional creation-date range
//  4. [Board.Export] : write the cache in several formats with a small worker pool
//
// # Mutations
//
// Every mutation runs through a [guard.Guard] keyed by todo id, so a second request for the same todo is
// rejected while the first is pending. Rejections are returned silently. Other failures are classified by the
// API layer and handed to an [apierr.Dispatcher], which notifies the user, applies field errors or expires the
// session. On success the server-confirmed copy is merged into the cache and a short notice is sent.
//
// # Stale Results
//
// Each operation records the session generation before its request. If the session changed by the time the
// response arrives, the result is discarded and [ErrStaleSession] is returned.
//
// # Progress Reporting
//
// [Board.Export] sends [ProgressUpdate] values on an optional channel. Sends never block; updates are dropped
// when the channel is full.
package tasks
