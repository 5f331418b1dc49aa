package reader

import (
	"regexp"
	"strings"

	"github.com/gotd/td/tg"
)

var urlRegex = regexp.MustCompile(`https?://\S+`)

// messageURLs collects the URLs a message carries: plain text matches plus
// the hidden targets of formatted links. Duplicates are dropped keeping the
// first occurrence; trailing punctuation glued onto text URLs is trimmed.
func messageURLs(msg *tg.Message) []string {
	var (
		urls []string
		seen = make(map[string]struct{})
	)

	add := func(raw string) {
		raw = strings.TrimRight(raw, ".,;:!?)»")
		if raw == "" {
			return
		}

		if _, ok := seen[raw]; ok {
			return
		}

		seen[raw] = struct{}{}
		urls = append(urls, raw)
	}

	for _, match := range urlRegex.FindAllString(msg.Message, -1) {
		add(match)
	}

	for _, entity := range msg.Entities {
		if textURL, ok := entity.(*tg.MessageEntityTextURL); ok {
			add(textURL.URL)
		}
	}

	return urls
}
