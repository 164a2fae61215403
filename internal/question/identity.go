package question

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Question and choice IDs are derived from content so that training history
// survives a re-download of the same course.

// NormalizeText folds text to the form used for identity hashing.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func digest(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// AssignIDs stamps deterministic IDs on every question and choice in s.
// Duplicate texts are told apart by their occurrence ordinal.
func AssignIDs(s Set) {
	seen := make(map[string]int, len(s))
	for i := range s {
		key := NormalizeText(s[i].Text)
		n := seen[key]
		seen[key] = n + 1
		s[i].ID = ID(digest("q", key, strconv.Itoa(n)))

		choiceSeen := make(map[string]int, len(s[i].Choices))
		for j := range s[i].Choices {
			ck := NormalizeText(s[i].Choices[j].Text)
			cn := choiceSeen[ck]
			choiceSeen[ck] = cn + 1
			s[i].Choices[j].ID = ChoiceID(digest("c", string(s[i].ID), ck, strconv.Itoa(cn)))
		}
	}
}
