package llm

import (
	"encoding/json"
	"strings"
)

// Prompt placeholder tokens.
const (
	tokenPostText     = "{{POST_TEXT}}"
	tokenPermalink    = "{{POST_PERMALINK}}"
	tokenKnownURLs    = "{{KNOWN_URLS_JSON}}"
	tokenMainEvent    = "{{MAIN_EVENT_RU}}"
	tokenEventType    = "{{EVENT_TYPE}}"
	tokenExternalURLs = "{{EXTERNAL_URLS_JSON}}"
	tokenSignals      = "{{SIGNALS_JSON}}"
	tokenLabels       = "{{LABELS}}"
	tokenMaxBullets   = "{{MAX_BULLETS}}"
)

const extractSystemPrompt = `You extract structured news events from Telegram posts about AI and machine learning. Return STRICT JSON ONLY: a single object, double quotes, no markdown, no commentary.

The object must include:
- main_event_ru: string — one short Russian sentence describing the main event of the post.
- event_type: string — one of: "релиз", "исследование", "анонс", "обновление", "прочее".
- external_urls: array of {url, normalized_url, domain} for every external link in the post or its known URLs. normalized_url must have tracking parameters removed.
- signals: object — any engagement hints present in the text (may be empty).`

const extractUserPrompt = `Post text:
` + tokenPostText + `

Permalink: ` + tokenPermalink + `
Known URLs from the platform API: ` + tokenKnownURLs

const classifySystemPrompt = `You classify AI/ML news events with topical labels. Return STRICT JSON ONLY: {"labels": [{"label": string, "confidence": number}]}.

Allowed label values: ` + tokenLabels + `. Confidence is in [0,1]. Return between one and three labels, most confident first. No other keys.`

const classifyUserPrompt = `Event: ` + tokenMainEvent + `

Post text:
` + tokenPostText + `

External URLs: ` + tokenExternalURLs

const summarizeSystemPrompt = `You write Russian digest entries for AI/ML news. Return STRICT JSON ONLY: {"title_ru": string, "bullets_ru": [string], "why_important_ru": string}.

Rules:
- title_ru: one punchy Russian headline, no trailing period.
- bullets_ru: up to ` + tokenMaxBullets + ` short factual bullets, each a standalone statement.
- why_important_ru: one sentence explaining why the event matters to practitioners.`

const summarizeUserPrompt = `Event: ` + tokenMainEvent + ` (type: ` + tokenEventType + `)

Post text:
` + tokenPostText + `

External URLs: ` + tokenExternalURLs + `
Engagement signals: ` + tokenSignals

const maxSummaryBullets = "6"

// renderPrompt substitutes placeholder tokens in a prompt template.
func renderPrompt(template string, replacements map[string]string) string {
	pairs := make([]string, 0, len(replacements)*2)
	for token, value := range replacements {
		pairs = append(pairs, token, value)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// mustJSON marshals a value for prompt interpolation; marshal failures
// degrade to an empty JSON value rather than aborting a call.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}

	return string(b)
}
