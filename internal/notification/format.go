package notification

import (
	"fmt"
	"strings"
)

// FormatTitle prefixes the title with the upper-cased category tag, for
// example "[WEATHER] Storm warning". The dispatcher applies this exactly
// once when a task is first processed; transports receive the formatted
// title and the body verbatim.
func FormatTitle(category Category, title string) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(category)), title)
}
