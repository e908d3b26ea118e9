package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/stathistory/internal/timeaxis"
)

// TypeAugment is the feed entry type for roster augments.
const TypeAugment = "augment"

// Markers that flag an entry as relevant regardless of its type.
var deliveryMarkers = []string{"Special Delivery", "Shipment"}

// Entry is one item of a team or player feed.
type Entry struct {
	Time  timeaxis.TimePoint
	Type  string
	Text  string
	Emoji string
}

type wireEntry struct {
	Season int             `json:"season"`
	Day    json.RawMessage `json:"day"`
	Type   string          `json:"type"`
	Text   string          `json:"text"`
	Emoji  string          `json:"emoji"`
}

// UnmarshalJSON decodes the upstream shape, where day is either a number or
// the name of a special day.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	t := timeaxis.TimePoint{Season: w.Season}
	day := bytes.TrimSpace(w.Day)
	switch {
	case len(day) == 0 || bytes.Equal(day, []byte("null")):
	case day[0] == '"':
		var s string
		if err := json.Unmarshal(day, &s); err != nil {
			return fmt.Errorf("decoding feed day: %w", err)
		}
		if n, err := strconv.Atoi(s); err == nil {
			t.Day = n
		} else {
			t.Special = s
		}
	default:
		n, err := strconv.Atoi(string(day))
		if err != nil {
			return fmt.Errorf("decoding feed day %s: %w", day, err)
		}
		t.Day = n
	}

	*e = Entry{Time: t, Type: w.Type, Text: w.Text, Emoji: w.Emoji}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (e Entry) MarshalJSON() ([]byte, error) {
	var day any = e.Time.Day
	if e.Time.IsSpecial() {
		day = e.Time.Special
	}
	return json.Marshal(map[string]any{
		"season": e.Time.Season,
		"day":    day,
		"type":   e.Type,
		"text":   e.Text,
		"emoji":  e.Emoji,
	})
}

// Annotation is the extracted narrative for one time point.
type Annotation struct {
	Time  timeaxis.TimePoint `json:"time"`
	Text  string             `json:"text"`
	Names []string           `json:"names"`
}

// Annotate filters a chronological feed down to augment and delivery entries
// within [start, end] that mention one of names, and extracts the sentences
// mentioning them. Entries at the same time point are merged in feed order.
// An entry whose sentences all fall away yields an empty annotation.
func Annotate(entries []Entry, names []string, start, end timeaxis.TimePoint) []Annotation {
	var out []Annotation
	index := make(map[timeaxis.TimePoint]int)

	for _, entry := range entries {
		if !relevant(entry) || !entry.Time.Within(start, end) {
			continue
		}
		text := plainText(entry.Text)
		matched := mentioned(text, names)
		if len(matched) == 0 {
			continue
		}

		extracted := Extract(text, names)
		if i, ok := index[entry.Time]; ok {
			out[i].Text = out[i].Text + " " + extracted
			out[i].Names = union(out[i].Names, matched)
			continue
		}
		index[entry.Time] = len(out)
		out = append(out, Annotation{Time: entry.Time, Text: extracted, Names: matched})
	}
	return out
}

func relevant(e Entry) bool {
	if e.Type == TypeAugment {
		return true
	}
	for _, marker := range deliveryMarkers {
		if strings.Contains(e.Text, marker) {
			return true
		}
	}
	return false
}

func mentioned(text string, names []string) []string {
	var out []string
	for _, name := range names {
		if name != "" && strings.Contains(text, name) {
			out = append(out, name)
		}
	}
	return out
}

func union(a, b []string) []string {
	for _, name := range b {
		found := false
		for _, have := range a {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			a = append(a, name)
		}
	}
	return a
}

// periodGuard stands in for periods inside names while splitting sentences.
const periodGuard = "\x00"

// Extract keeps the sentences of text that mention one of names. A leading
// exclamation ("Special Delivery! ...") is dropped from a kept sentence.
// Sentences are rejoined with ". " and a closing period.
func Extract(text string, names []string) string {
	protected := text
	for _, name := range names {
		if strings.Contains(name, ".") {
			protected = strings.ReplaceAll(protected, name, strings.ReplaceAll(name, ".", periodGuard))
		}
	}

	var kept []string
	for _, sentence := range strings.Split(protected, ".") {
		sentence = strings.TrimSpace(strings.ReplaceAll(sentence, periodGuard, "."))
		if len(mentioned(sentence, names)) == 0 {
			continue
		}
		if i := strings.Index(sentence, "!"); i >= 0 {
			cut := min(i+2, len(sentence))
			sentence = strings.TrimSpace(sentence[cut:])
		}
		if sentence != "" {
			kept = append(kept, sentence)
		}
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ". ") + "."
}

// plainText strips inline markup and decodes entities from feed text.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
