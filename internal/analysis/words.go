// Package analysis computes the aggregate views shown next to a review
// sample: word frequencies, rating splits and per-region, per-day and
// per-version breakdowns. All functions are pure.
package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"review_lens/internal/domain"
)

const DefaultWordLimit = 100

// anything that is not an ASCII word char, whitespace or a CJK ideograph
var nonWord = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}]`)

var digitsOnly = regexp.MustCompile(`^\d+$`)

var stopWords = toSet(
	// english
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "can", "this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them", "my", "your",
	"his", "its", "our", "their", "very", "good", "great", "nice", "like", "love",
	"really", "just", "get", "use", "using", "used", "make", "makes", "made", "work", "works",
	"working", "time", "way", "need", "want", "see", "know", "think", "go", "going", "come",
	"app", "application", "review", "rating", "star", "stars", "one", "two", "three", "four", "five",
	"first", "second", "third", "last", "next", "back", "best", "better",
	"much", "more", "most", "many", "lot", "lots", "some", "any", "all", "every", "each", "other",
	"same", "different", "new", "old", "right", "wrong", "long", "short", "big", "small", "high", "low",
	"easy", "hard", "fast", "slow", "free", "pay", "paid", "buy", "bought", "find", "found", "try", "tried",
	// chinese
	"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都", "一", "一个", "上", "也", "很", "到", "说", "要", "去",
	"你", "会", "着", "没有", "看", "好", "自己", "这", "那", "里", "下", "来", "个", "出", "为", "用", "对", "可以",
	"应用", "软件", "程序", "评价", "评论", "星", "分", "非常", "还是", "比较", "觉得", "感觉", "挺", "蛮", "太",
	"真的", "确实", "但是", "不过", "只是", "就是", "这个", "那个", "什么", "怎么", "这样", "那样", "如果", "因为",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// WordFrequency counts the words of every review's title and content and
// returns the limit most frequent ones, ties broken alphabetically.
// limit <= 0 means DefaultWordLimit.
func WordFrequency(reviews []domain.Review, limit int) []domain.WordFrequency {
	if limit <= 0 {
		limit = DefaultWordLimit
	}
	counts := make(map[string]int)
	for _, r := range reviews {
		text := nonWord.ReplaceAllString(strings.ToLower(r.Title+" "+r.Content), " ")
		for _, w := range strings.Fields(text) {
			if utf8.RuneCountInString(w) < 2 || digitsOnly.MatchString(w) {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	out := make([]domain.WordFrequency, 0, len(counts))
	for w, n := range counts {
		out = append(out, domain.WordFrequency{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
