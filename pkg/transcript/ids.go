package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewConversationID mints a conversation id of the form
// <prefix>_<timestamp>_<short-uuid>, matching the transcript file naming
// used across the catalog.
func NewConversationID(prefix string) string {
	if prefix == "" {
		prefix = "agent"
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().Format("20060102_150405"), short)
}
