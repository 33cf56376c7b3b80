package canonical

import (
	"regexp"
	"strings"
)

var (
	dayFirstDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	nonDigitRe     = regexp.MustCompile(`\D+`)
)

// SplitDateParts parses the date formats the payload normalizer produces
// (dd/mm/yyyy, dd-mm-yy, ISO yyyy-mm-dd, or 8 contiguous digits) into a
// zero-padded (dd, mm, yyyy) triplet. Two-digit years are assumed 20xx.
// Unparseable input yields three empty strings, never an error.
func SplitDateParts(v string) (dd, mm, yyyy string) {
	raw := strings.TrimSpace(v)
	if raw == "" {
		return "", "", ""
	}
	if m := dayFirstDateRe.FindStringSubmatch(raw); m != nil {
		yy := m[3]
		if len(yy) == 2 {
			yy = "20" + yy
		}
		return pad2(m[1]), pad2(m[2]), yy
	}
	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		return pad2(m[3]), pad2(m[2]), m[1]
	}
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) == 8 {
		return digits[0:2], digits[2:4], digits[4:8]
	}
	return "", "", ""
}

func pad2(v string) string {
	if len(v) == 1 {
		return "0" + v
	}
	return v
}
