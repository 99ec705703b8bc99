package analysis

import (
	"sort"
	"strings"
	"time"

	"review_lens/internal/domain"
)

const maxTopIssues = 5

// issueVocabulary is scanned, in this order, in negative reviews.
var issueVocabulary = []string{"crash", "bug", "slow", "loading", "error", "freeze", "glitch", "problem"}

func isPositive(r domain.Review) bool { return r.Rating >= 4 }
func isNegative(r domain.Review) bool { return r.Rating <= 2 }

// Sentiment classifies by star rating: 4-5 positive, 3 neutral, the rest
// (including unparsable 0) negative.
func Sentiment(reviews []domain.Review) domain.Sentiment {
	var s domain.Sentiment
	for _, r := range reviews {
		switch {
		case isPositive(r):
			s.Positive++
		case r.Rating == 3:
			s.Neutral++
		default:
			s.Negative++
		}
	}
	return s
}

// RatingDistribution always returns the five buckets 1..5. Reviews with an
// unparsable rating are counted in the total but in no bucket.
func RatingDistribution(reviews []domain.Review) []domain.RatingBucket {
	out := make([]domain.RatingBucket, 5)
	for i := range out {
		out[i].Rating = i + 1
	}
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			out[r.Rating-1].Count++
		}
	}
	if total := len(reviews); total > 0 {
		for i := range out {
			out[i].Percentage = float64(out[i].Count) / float64(total) * 100
		}
	}
	return out
}

func averageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// ByRegion groups reviews by their region tag, largest group first.
func ByRegion(reviews []domain.Review) []domain.RegionStats {
	groups := make(map[string][]domain.Review)
	for _, r := range reviews {
		region := r.Region
		if region == "" {
			region = "Unknown"
		}
		groups[region] = append(groups[region], r)
	}

	out := make([]domain.RegionStats, 0, len(groups))
	for region, rs := range groups {
		out = append(out, domain.RegionStats{
			Region:        region,
			AverageRating: averageRating(rs),
			TotalReviews:  len(rs),
			Distribution:  RatingDistribution(rs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalReviews != out[j].TotalReviews {
			return out[i].TotalReviews > out[j].TotalReviews
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// TimeTrends buckets reviews by UTC calendar day, oldest day first.
func TimeTrends(reviews []domain.Review) []domain.TrendPoint {
	groups := make(map[string][]domain.Review)
	for _, r := range reviews {
		day := r.Date.UTC().Format(time.DateOnly)
		groups[day] = append(groups[day], r)
	}

	out := make([]domain.TrendPoint, 0, len(groups))
	for day, rs := range groups {
		p := domain.TrendPoint{Date: day, ReviewCount: len(rs), AverageRating: averageRating(rs)}
		for _, r := range rs {
			if isPositive(r) {
				p.PositiveCount++
			}
			if isNegative(r) {
				p.NegativeCount++
			}
		}
		out = append(out, p)
	}
	// YYYY-MM-DD sorts chronologically as a string
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Versions summarises every reported app version, oldest first. A version's
// release date is approximated by its earliest review. Reviews without a
// version are ignored.
func Versions(reviews []domain.Review) []domain.VersionStats {
	groups := make(map[string][]domain.Review)
	for _, r := range reviews {
		if r.Version == "" {
			continue
		}
		groups[r.Version] = append(groups[r.Version], r)
	}

	out := make([]domain.VersionStats, 0, len(groups))
	for version, rs := range groups {
		vs := domain.VersionStats{
			Version:       version,
			AverageRating: averageRating(rs),
			ReviewCount:   len(rs),
			ReleaseDate:   rs[0].Date,
		}
		var negative []domain.Review
		for _, r := range rs {
			if r.Date.Before(vs.ReleaseDate) {
				vs.ReleaseDate = r.Date
			}
			if isPositive(r) {
				vs.PositiveCount++
			}
			if isNegative(r) {
				vs.NegativeCount++
				negative = append(negative, r)
			}
		}
		vs.TopIssues = topIssues(negative)
		out = append(out, vs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReleaseDate.Equal(out[j].ReleaseDate) {
			return out[i].ReleaseDate.Before(out[j].ReleaseDate)
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// topIssues counts, per vocabulary term, the reviews mentioning it and keeps
// the most frequent ones; ties follow vocabulary order.
func topIssues(negative []domain.Review) []string {
	counts := make([]int, len(issueVocabulary))
	for _, r := range negative {
		text := strings.ToLower(r.Title + " " + r.Content)
		for i, issue := range issueVocabulary {
			if strings.Contains(text, issue) {
				counts[i]++
			}
		}
	}

	idx := make([]int, 0, len(issueVocabulary))
	for i, n := range counts {
		if n > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return counts[idx[a]] > counts[idx[b]] })

	out := make([]string, 0, maxTopIssues)
	for _, i := range idx {
		if len(out) == maxTopIssues {
			break
		}
		out = append(out, issueVocabulary[i])
	}
	return out
}
