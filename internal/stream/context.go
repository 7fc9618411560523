package stream

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Mood is the coarse sentiment label tracked per stream.
type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodPositive Mood = "positive"
	MoodNegative Mood = "negative"
	MoodExcited  Mood = "excited"
)

func (m Mood) String() string {
	return string(m)
}

// DefaultTitle is the placeholder title a fresh context starts with.
const DefaultTitle = "Test Stream"

// StreamContext is the mutable per-stream session record. It is only
// mutated through Store operations; Store methods hand out copies.
type StreamContext struct {
	Title        string    `json:"title"`
	StartTime    time.Time `json:"start_time"`
	Duration     float64   `json:"duration"` // seconds since StartTime, recomputed on read
	Topics       []string  `json:"topics"`
	Mood         Mood      `json:"mood"`
	History      []string  `json:"previous_messages"`
	Viewers      int       `json:"viewers"`
	MessageCount int       `json:"message_count"`
}

func newContext() *StreamContext {
	return &StreamContext{
		Title:     DefaultTitle,
		StartTime: time.Now(),
		Topics:    []string{},
		Mood:      MoodNeutral,
		History:   []string{},
	}
}

func (c *StreamContext) clone() *StreamContext {
	cp := *c
	cp.Topics = append([]string(nil), c.Topics...)
	cp.History = append([]string(nil), c.History...)
	return &cp
}

// snapshot returns a copy with Duration recomputed from StartTime.
func (c *StreamContext) snapshot() *StreamContext {
	cp := c.clone()
	cp.Duration = time.Since(c.StartTime).Seconds()
	return cp
}

// Small hard-coded sentiment lexicons, mixed Japanese and English.
var (
	positiveWords = []string{"楽しい", "嬉しい", "面白い", "すごい", "好き", "最高", "happy", "fun", "great"}
	negativeWords = []string{"難しい", "悲しい", "辛い", "苦しい", "嫌い", "最悪", "sad", "hard", "tough"}
	excitedWords  = []string{"わくわく", "興奮", "激アツ", "テンション", "excited", "amazing"}
)

// analyzeContent derives the next mood from the message content, the
// prior mood and the current message count. Ties keep the prior mood
// except every fifth message, which decays to neutral; the damping
// avoids oscillation on short or ambiguous messages.
func analyzeContent(content string, prior Mood, messageCount int) Mood {
	lower := strings.ToLower(content)

	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	positive := count(positiveWords)
	negative := count(negativeWords)
	excited := count(excitedWords)

	switch {
	case excited > 0:
		return MoodExcited
	case positive > negative:
		return MoodPositive
	case negative > positive:
		return MoodNegative
	default:
		if messageCount%5 == 0 {
			return MoodNeutral
		}
		return prior
	}
}

// extractTopics unions the lower-cased whitespace-split words of the
// title (length > 2) with the existing topic set. Topics only ever
// accrete; a later title never removes them.
func extractTopics(title string, existing []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}
	for _, word := range strings.Fields(title) {
		word = strings.ToLower(word)
		if utf8.RuneCountInString(word) > 2 {
			seen[word] = struct{}{}
		}
	}

	topics := make([]string, 0, len(seen))
	for t := range seen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
