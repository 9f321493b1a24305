// Package id generates prefixed record identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Id prefixes, one per record collection plus tokens and users.
const (
	PrefixQuestion    = "q"
	PrefixTag         = "tag"
	PrefixQuestionTag = "qt"
	PrefixAnswer      = "ans"
	PrefixVote        = "vote"
	PrefixCollection  = "col"
	PrefixToken       = "token"
	PrefixUser        = "u"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "q-V1StGXR8_Z5jdHi6B-myT")
//
// Ids are generated before a batch is opened so that operations referencing a
// new record (a link pointing at a freshly created tag) can be queued in the
// same batch without a round trip.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
