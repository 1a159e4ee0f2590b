/*
Package roster is the bulk import resolver: it turns an uploaded byte
stream of member identifiers into resolved, deduplicated members ready
for the participation ledger.

PURPOSE:
  Source files come from outside the organization and are not guaranteed
  to have a fixed layout. The pipeline is

    parse -> normalize -> resolve -> deduplicate

  and is pure: no side effects on the ledger, independently testable
  without storage.

CONTENT KINDS:
  Uploads declare one of two shapes, modeled as a tagged kind dispatched
  once at parse entry rather than scattered string comparisons:
    KindPlainList:     one raw identifier per line
    KindDelimitedRows: comma-delimited rows where the identifier column
                       is found by a known-prefix heuristic

SKIP SEMANTICS:
  Unresolvable identifiers are not errors; they are dropped silently and
  counted for reporting. Duplicates keep their first occurrence and
  preserve input order.
*/
package roster

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ContentKind is the declared shape of an uploaded identifier document.
type ContentKind int

const (
	KindPlainList ContentKind = iota
	KindDelimitedRows
)

// KindFromContentType maps a transport content type to a ContentKind.
func KindFromContentType(contentType string) (ContentKind, error) {
	switch strings.TrimSpace(strings.Split(contentType, ";")[0]) {
	case "text/plain", "application/octet-stream":
		return KindPlainList, nil
	case "text/csv":
		return KindDelimitedRows, nil
	default:
		return 0, fmt.Errorf("unsupported content type %q", contentType)
	}
}

// ParseIdentifiers extracts raw identifiers from the stream. Blank lines
// are skipped. For delimited rows, the identifier column is picked per
// line by the known-prefix heuristic; lines where no column matches are
// dropped.
func ParseIdentifiers(r io.Reader, kind ContentKind) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch kind {
		case KindPlainList:
			out = append(out, line)
		case KindDelimitedRows:
			if id, ok := pickIdentifierColumn(line); ok {
				out = append(out, id)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return out, nil
}

// pickIdentifierColumn scans the comma-separated chunks of a row and
// returns the one that looks like a member identifier, in padded or
// unpadded form. Later matches win, mirroring source files where the
// identifier follows the name columns.
func pickIdentifierColumn(line string) (string, bool) {
	var id string
	found := false
	for _, chunk := range strings.Split(line, ",") {
		chunk = strings.TrimSpace(chunk)
		if matchesKnownPrefix(chunk) {
			id = chunk
			found = true
		}
	}
	return id, found
}
