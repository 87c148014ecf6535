package postgres

import (
	"strings"

	"github.com/google/uuid"
)

// newID returns prefix followed by ten upper-case hex digits.
func newID(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
