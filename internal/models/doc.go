// Package models defines the data types exchanged between the todo API, the session core and the local cache.
//
// The package contains two categories of types:
//
// 1. Wire types mirroring the remote API:
//   - [Todo] : a server-owned todo item; id and timestamps are never derived locally
//   - [TodoDraft] : the locally editable fields submitted on create and edit
//   - [Credentials] : username and password submitted to register and login
//   - [Registration] : the register endpoint's acknowledgement
//
// 2. Session types:
//   - [Identity] : the subject decoded from a bearer token, plus its raw claims
//
// [Todo.Merge] applies a server-confirmed copy over a cached one. It is an authoritative overwrite,
// never a local toggle of the previous value.
package models
