// Package inbox builds and parses conversation identifiers.
//
// An identifier is the kind tag followed by the sorted participant ids, all
// joined with "_":
//
//	d_alice_bob        direct (exactly two participants)
//	g_alice_bob_carol  group (three or more)
//
// Identifiers are deterministic: New("bob", "alice") and New("alice", "bob")
// both return "d_alice_bob". Participant ids therefore must not contain "_".
package inbox
