package parse

import "strings"

// normalizeIdentifier unquotes back-quoted identifiers and rejects a
// leading underscore. Keywords used as identifiers are accepted as-is:
// the grammar itself is the only thing that would distinguish a keyword
// from a plain identifier token, and since this driver receives
// already-tokenized identifier strings, that distinction has no further
// effect here.
func normalizeIdentifier(raw string) (string, error) {
	s := raw
	if strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") && len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "_") {
		return "", ErrAdapterOrder.New(raw, "identifiers beginning with '_' are not supported")
	}
	return s, nil
}
