package roster

import (
	"context"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// RESOLVER - normalize -> resolve -> deduplicate
// =============================================================================

// Resolver resolves raw uploaded identifiers against the member
// directory. Implements rank.IdentifierResolver.
type Resolver struct {
	Directory rank.MemberDirectory
}

func NewResolver(directory rank.MemberDirectory) *Resolver {
	return &Resolver{Directory: directory}
}

// ResolveMembers normalizes each raw identifier, looks it up in the
// directory, drops unresolvable ones (counted, not errors) and
// deduplicates resolved members first-occurrence-wins, preserving input
// order.
func (r *Resolver) ResolveMembers(ctx context.Context, raw []string) ([]rank.Member, rank.BulkReport, error) {
	var report rank.BulkReport
	var resolved []rank.Member
	for _, rawID := range raw {
		id := Normalize(rawID)
		member, err := r.Directory.MemberByIdentifier(ctx, id)
		if err != nil {
			return nil, report, err
		}
		if member == nil {
			report.Unresolved++
			continue
		}
		resolved = append(resolved, *member)
	}

	deduped := Deduplicate(resolved)
	report.DuplicateInput = len(resolved) - len(deduped)
	return deduped, report, nil
}

// Deduplicate keeps the first occurrence of each member, preserving
// input order: [mA, mB, mA, mC, mB] -> [mA, mB, mC].
func Deduplicate(members []rank.Member) []rank.Member {
	seen := make(map[rank.MemberID]bool, len(members))
	out := members[:0:0]
	for _, m := range members {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
