// Package identity normalizes and validates tenant identities.
//
// A canonical identity is exactly 16 decimal digits. The storage prefix
// derived from it ("_" + identity) namespaces every object key a tenant owns;
// the fixed width guarantees prefixes never collide across tenants.
package identity

import (
	"strings"
	"unicode"

	"github.com/dmitrijs2005/filevault/internal/common"
)

const digits = 16

// Normalize strips all whitespace from the input. It does not validate.
func Normalize(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
}

// Parse normalizes the input and requires the result to be exactly 16
// decimal digits. Returns common.ErrInvalidIdentity otherwise.
func Parse(input string) (string, error) {
	id := Normalize(input)
	if len(id) != digits {
		return "", common.ErrInvalidIdentity
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", common.ErrInvalidIdentity
		}
	}
	return id, nil
}

// StoragePrefix derives the per-tenant object-key namespace.
func StoragePrefix(id string) string {
	return "_" + id
}
