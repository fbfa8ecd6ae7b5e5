package helpers

import (
	"errors"
	"strings"
)

// GetField returns the index-th whitespace separated field of target.
func GetField(target string, index int) (string, error) {
	fields := strings.Fields(target)
	if index < 0 || index >= len(fields) {
		return "", errors.New("index out of range")
	}
	return fields[index], nil
}

// StripThousands removes thousands separators from a displayed number.
func StripThousands(s string) string {
	return strings.NewReplacer(",", "", " ", "", "'", "").Replace(s)
}
