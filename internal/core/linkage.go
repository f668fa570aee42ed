package core

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var inventoryLinkToken = regexp.MustCompile(`(?i)[\s|,;-]*\[?inventory_item_id:\s*([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\]?`)

// ParseInventoryLink extracts a legacy inventory_item_id:<uuid> token from an
// expense description. It returns the id, the description without the token,
// and whether a token was found.
func ParseInventoryLink(description string) (uuid.UUID, string, bool) {
	m := inventoryLinkToken.FindStringSubmatchIndex(description)
	if m == nil {
		return uuid.Nil, description, false
	}
	id, err := uuid.Parse(description[m[2]:m[3]])
	if err != nil {
		return uuid.Nil, description, false
	}
	cleaned := strings.TrimSpace(description[:m[0]] + description[m[1]:])
	return id, cleaned, true
}
