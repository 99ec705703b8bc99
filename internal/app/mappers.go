package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_lens/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Feed entries wrap every scalar as {"label": ...}; older payloads sometimes
// carry bare strings, so both shapes are listed.
var entryAliases = map[string][]string{
	"id":      {"id.label", "id"},
	"title":   {"title.label", "title"},
	"content": {"content.label", "content"},
	"rating":  {"im:rating.label", "im:rating"},
	"author":  {"author.name.label", "author.name", "author.label"},
	"updated": {"updated.label", "updated"},
	"version": {"im:version.label", "im:version"},
}

var lookupAliases = map[string][]string{
	"name":      {"trackName", "trackCensoredName"},
	"developer": {"artistName", "sellerName"},
	"logo":      {"artworkUrl512", "artworkUrl100", "artworkUrl60"},
}

var errMalformedEntry = errors.New("feed entry is not an object")

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// hasAlias reports whether any path of the alias set is present, even if empty.
func hasAlias(m map[string]any, aliases map[string][]string, key string) bool {
	for _, p := range aliases[key] {
		if lookupAny(m, p) != nil {
			return true
		}
	}
	return false
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) (int64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

/********** feed entry mapper **********/

// isAppMetadata reports whether a page-1 entry is the app description the feed
// puts ahead of the reviews. That entry has no rating.
func isAppMetadata(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return true
	}
	return !hasAlias(m, entryAliases, "rating")
}

// mapEntry turns one raw feed entry into a review. Missing fields are
// defaulted; only an entry that is not a JSON object is rejected.
func mapEntry(entry any, appID, region string, page, ordinal int, now time.Time) (domain.Review, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return domain.Review{}, fmt.Errorf("%w: got %T", errMalformedEntry, entry)
	}

	rv := domain.Review{
		ID:      firstNonEmptyAlias(m, entryAliases, "id"),
		Title:   firstNonEmptyAlias(m, entryAliases, "title"),
		Content: firstNonEmptyAlias(m, entryAliases, "content"),
		Author:  firstNonEmptyAlias(m, entryAliases, "author"),
		Version: firstNonEmptyAlias(m, entryAliases, "version"),
		Rating:  parseRating(m),
		Date:    now,
	}
	if rv.ID == "" {
		rv.ID = fmt.Sprintf("%s-%s-%d-%d", appID, region, page, ordinal)
	}
	if rv.Author == "" {
		rv.Author = "Anonymous"
	}
	if t, ok := parseTime(firstNonEmptyAlias(m, entryAliases, "updated")); ok {
		rv.Date = t
	}
	return rv, nil
}

// parseRating keeps the integer part of the label; anything outside 0..5 is 0.
func parseRating(m map[string]any) int {
	f, ok := getFloatFlexible(m, entryAliases["rating"]...)
	if !ok || math.IsNaN(f) {
		return 0
	}
	r := int(f)
	if r < 0 || r > 5 {
		return 0
	}
	return r
}

/********** lookup mapper **********/

func mapAppInfo(appID string, p map[string]any, now time.Time) domain.AppInfo {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).
			Str("context", "mapAppInfo").
			Msg("failed to marshal lookup result to JSON")
	}

	info := domain.AppInfo{
		ID:        appID,
		Name:      firstNonEmptyAlias(p, lookupAliases, "name"),
		Developer: firstNonEmptyAlias(p, lookupAliases, "developer"),
		LogoURL:   firstNonEmptyAlias(p, lookupAliases, "logo"),
		RawJSON:   raw,
	}
	if info.Name == "" {
		info.Name = "Unknown App"
	}
	if info.Developer == "" {
		info.Developer = "Unknown Developer"
	}
	if f, ok := getFloatFlexible(p, "averageUserRating", "averageUserRatingForCurrentVersion"); ok {
		info.Rating = f
	}
	if n, ok := firstInt64Flexible(p, "userRatingCount", "userRatingCountForCurrentVersion"); ok {
		info.RatingCount = n
	}
	if n, ok := firstInt64Flexible(p, "fileSizeBytes"); ok && n > 0 {
		info.FileSizeBytes = n
		info.FileSizeMB = math.Round(float64(n)/(1024*1024)*100) / 100
	}
	if t, ok := parseTime(lookupStr(p, "currentVersionReleaseDate")); ok {
		info.CurrentVersionReleaseDate = &t
	}
	if t, ok := parseTime(lookupStr(p, "releaseDate")); ok {
		info.ReleaseDate = &t
		info.DaysOnStore, info.TimeOnStore = timeOnStore(t, now)
	} else {
		info.TimeOnStore = "unknown"
	}
	return info
}

// timeOnStore counts whole days since release and renders them with 365-day
// years and 30-day months.
func timeOnStore(release, now time.Time) (int, string) {
	days := int(now.Sub(release).Hours() / 24)
	if days < 0 {
		return 0, "0d"
	}
	years, rest := days/365, days%365
	months, d := rest/30, rest%30
	switch {
	case years > 0:
		return days, fmt.Sprintf("%dy %dm %dd", years, months, d)
	case months > 0:
		return days, fmt.Sprintf("%dm %dd", months, d)
	default:
		return days, fmt.Sprintf("%dd", d)
	}
}
