package roster

import "strings"

// =============================================================================
// IDENTIFIER NORMALIZATION - Fixed-width zero-padding
// =============================================================================

// padRule pads identifiers whose leading digits match a known issuer
// prefix up to the canonical width. The table is an external contract
// (configuration constant), not core logic: source systems export the
// same identifier with or without leading zeros.
type padRule struct {
	prefix string // unpadded leading digits
	pad    string // zeros restoring the canonical width
}

var padRules = []padRule{
	{prefix: "36", pad: "00"},
	{prefix: "69", pad: "00"},
	{prefix: "62", pad: "00"},
	{prefix: "246", pad: "0"},
}

// Normalize applies the fixed-width zero-padding rule keyed on the
// identifier's leading digits. Already-padded identifiers pass through
// unchanged, as does anything not matching the prefix table.
func Normalize(raw string) string {
	id := strings.TrimSpace(raw)
	for _, rule := range padRules {
		if strings.HasPrefix(id, rule.pad+rule.prefix) {
			return id // already canonical
		}
	}
	for _, rule := range padRules {
		if strings.HasPrefix(id, rule.prefix) {
			return rule.pad + id
		}
	}
	return id
}

// matchesKnownPrefix reports whether the chunk starts with a known
// issuer prefix, padded or not. Used to locate the identifier column in
// delimited rows.
func matchesKnownPrefix(chunk string) bool {
	if chunk == "" {
		return false
	}
	for _, rule := range padRules {
		if strings.HasPrefix(chunk, rule.pad+rule.prefix) || strings.HasPrefix(chunk, rule.prefix) {
			return true
		}
	}
	return false
}
