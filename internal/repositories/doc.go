// Package repositories implements SQLite persistence for the client.
//
// Key Implementations:
//   - [CredentialRepository] : the single bearer-token slot behind a session's credential store
//   - [TodoRepository] : a read cache of server-confirmed todo items, partitioned by owner
//
// The cache is never the source of truth. It is replaced wholesale on refresh and patched only with
// copies the server has confirmed; nothing is queued for later delivery.
package repositories
