package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxQueryRows caps the rows any generated query may return.
const MaxQueryRows = 1000

var trailingLimitRe = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*$`)

// Normalize strips markdown fences from a generated query, drops one
// trailing semicolon, and enforces a trailing LIMIT of at most maxRows.
// It never fails: empty input yields an empty result. Applying it to
// its own output is a no-op.
func Normalize(raw string, maxRows int) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}

	if strings.HasPrefix(cleaned, "```") {
		// Drop the opening fence including any language tag on its line.
		if newline := strings.Index(cleaned, "\n"); newline >= 0 {
			cleaned = cleaned[newline+1:]
		} else {
			cleaned = cleaned[3:]
		}
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = cleaned[:len(cleaned)-3]
	}

	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, ";"), " \t\r\n")
	if cleaned == "" {
		return ""
	}

	if match := trailingLimitRe.FindStringSubmatch(cleaned); match != nil {
		// A literal too large for int fails Atoi; treat it as over the cap.
		existing, err := strconv.Atoi(match[1])
		if err != nil || existing > maxRows {
			cleaned = trailingLimitRe.ReplaceAllString(cleaned, fmt.Sprintf("LIMIT %d", maxRows))
		}
		return cleaned
	}
	return fmt.Sprintf("%s LIMIT %d", cleaned, maxRows)
}
