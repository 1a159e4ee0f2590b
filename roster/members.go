package roster

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// MEMBER ROSTER FILES - first,last,identifier,email rows
// =============================================================================

// ParseMembers reads a member roster file with one
// "firstName,lastName,identifier,email" row per line and returns member
// drafts with normalized identifiers. Rows with fewer than four columns
// are skipped and counted.
func ParseMembers(r io.Reader) ([]rank.Member, int, error) {
	var members []rank.Member
	skipped := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		chunks := strings.Split(line, ",")
		if len(chunks) < 4 {
			skipped++
			continue
		}
		members = append(members, rank.Member{
			FirstName:  strings.TrimSpace(chunks[0]),
			LastName:   strings.TrimSpace(chunks[1]),
			Identifier: Normalize(chunks[2]),
			Email:      strings.TrimSpace(chunks[3]),
			Verified:   true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading roster: %w", err)
	}
	return members, skipped, nil
}
