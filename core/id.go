package core

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewID generates a prefixed ULID of the form prefix_ULID, e.g.
// NewID("ia") returns "ia_01G0EZ1XTM37C5X11SQTDNCTM1". IDs sort by
// creation time within a prefix.
func NewID(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		panic("Prefix cannot be empty")
	}
	cleanPrefix := strings.TrimSpace(strings.ToLower(prefix))
	return fmt.Sprintf("%s_%s", cleanPrefix, ulid.Make().String())
}
