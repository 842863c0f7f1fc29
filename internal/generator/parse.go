package generator

import (
	"regexp"
	"strings"
	"time"

	"shoplist/internal/shopping"
)

// ordinal matches "1.", "12)" and the whitespace after them.
var ordinal = regexp.MustCompile(`^\d+[.)]\s*`)

// ParseReply turns a numbered-list reply into items, one per non-blank line.
// Lines without an ordinal are kept as they are. Ids come from now, the name
// and the item's position so equal names in one reply stay distinct.
func ParseReply(reply string, now time.Time) []shopping.Item {
	var items []shopping.Item
	for _, line := range strings.Split(reply, "\n") {
		name := strings.TrimSpace(ordinal.ReplaceAllString(strings.TrimSpace(line), ""))
		if name == "" {
			continue
		}
		items = append(items, shopping.Item{
			ID:       shopping.NewItemID(now, name, len(items)),
			Name:     name,
			Quantity: 1,
		})
	}
	return items
}
