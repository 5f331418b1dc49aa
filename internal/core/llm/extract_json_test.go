package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "pure_object",
			input: `{"main_event_ru":"x"}`,
			want:  `{"main_event_ru":"x"}`,
		},
		{
			name:  "object_with_preamble",
			input: `Here is the result: {"title_ru":"x"} done.`,
			want:  `{"title_ru":"x"}`,
		},
		{
			name:  "markdown_fenced",
			input: "Result:\n```json\n{\"x\": 1}\n```",
			want:  `{"x": 1}`,
		},
		{
			name:  "array_with_preamble",
			input: `labels: [{"label":"NLP","confidence":0.9}]`,
			want:  `[{"label":"NLP","confidence":0.9}]`,
		},
		{
			name:  "nested_braces_in_strings",
			input: `{"signals":{"views":10},"event_type":"релиз"}`,
			want:  `{"signals":{"views":10},"event_type":"релиз"}`,
		},
		{
			name:  "no_json",
			input: "just some text",
			want:  "just some text",
		},
		{
			name:  "empty_object",
			input: `Result: {}`,
			want:  `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
