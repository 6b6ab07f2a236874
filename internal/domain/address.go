package domain

import "strings"

// DefaultHouseNumber is assigned when an address carries no recognizable number.
const DefaultHouseNumber = "1"

// Address holds the structured parts recovered from a free-form address.
type Address struct {
	Street string
	Number string
}

// NormalizeAddress splits a raw address into street and house number.
//
// The first token containing "nr" (case-insensitive) marks the number when a
// token follows it. Otherwise a purely numeric last token is the number.
// Anything else keeps the whole string as the street with number "1".
func NormalizeAddress(raw string) Address {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return Address{Street: strings.TrimSpace(raw), Number: DefaultHouseNumber}
	}

	for i, tok := range tokens {
		if !strings.Contains(strings.ToLower(tok), "nr") {
			continue
		}
		if i+1 < len(tokens) {
			return Address{
				Street: strings.Join(tokens[:i], " "),
				Number: tokens[i+1],
			}
		}
		break
	}

	if last := tokens[len(tokens)-1]; len(tokens) > 1 && isDigits(last) {
		return Address{
			Street: strings.Join(tokens[:len(tokens)-1], " "),
			Number: last,
		}
	}

	return Address{Street: strings.Join(tokens, " "), Number: DefaultHouseNumber}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
