package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns an ILIKE/LIKE pattern matching s anywhere, with
// wildcard characters in s escaped.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// PrefixPattern returns a LIKE pattern matching strings that start with s.
func PrefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}
