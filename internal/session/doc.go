// Package session owns the client's authentication state.
//
// # State Machine
//
// A [Manager] moves between five statuses:
//
//	Unauthenticated --Init (stored token decodes)--> Validating --server accepts--> Authenticated
//	                                                 Validating --server rejects--> Unauthenticated
//	Unauthenticated|Authenticated --Accept--> Authenticating --decode ok--> Authenticated
//	                                          Authenticating --decode fails--> Unauthenticated
//	any --Logout--> Unauthenticated
//	Authenticated|Validating --Expire--> SoftExpired --> Unauthenticated
//
// The identity is present only in Authenticated and Validating; the token is present in every status
// except Unauthenticated. Transitions check their source status and are no-ops from any other.
//
// # Identity
//
// [Decode] extracts the subject from a three-segment bearer token without verifying its signature.
// It is a presentation convenience; the server decides whether a token is honored.
//
// # Generations
//
// Every time the session identity is replaced or cleared the generation counter moves forward.
// Callers capture [Manager.Generation] before a network call and discard the result if it changed,
// so a response that arrives after a logout never touches state belonging to the next session.
//
// # Persistence
//
// The token is mirrored into a [CredentialStore] so a later process can restore it. The store is
// never the source of truth while a Manager is running.
package session
