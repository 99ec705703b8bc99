package app

import (
	"fmt"
	"regexp"
	"strings"

	"review_lens/internal/domain"
)

var appURLRe = regexp.MustCompile(`https://apps\.apple\.com/([a-z]{2})/app/[^/]+/id(\d+)`)

// ParseAppURL extracts the numeric app id and the storefront region from an
// App Store product link such as https://apps.apple.com/us/app/notes/id123.
func ParseAppURL(raw string) (domain.AppRef, error) {
	m := appURLRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return domain.AppRef{}, fmt.Errorf("%w: %q", domain.ErrInvalidAppURL, raw)
	}
	return domain.AppRef{AppID: m[2], Region: m[1]}, nil
}
