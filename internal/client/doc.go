// Package client holds the client side of the two-phase sign-in: the
// pre-flight call to the auth gateway, credential verification directly
// against the identity provider, and the local session state built from
// the result.
//
// Session tokens never pass through the gateway. The orchestrator keeps
// the two stages separate and owns all session mutations.
package client
