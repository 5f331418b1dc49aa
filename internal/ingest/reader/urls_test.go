package reader

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
)

func TestMessageURLs(t *testing.T) {
	tests := []struct {
		name string
		msg  tg.Message
		want []string
	}{
		{
			name: "plain text url",
			msg:  tg.Message{Message: "читайте тут https://example.com/post."},
			want: []string{"https://example.com/post"},
		},
		{
			name: "text and entity urls",
			msg: tg.Message{
				Message: "анонс https://a.example/x",
				Entities: []tg.MessageEntityClass{
					&tg.MessageEntityTextURL{URL: "https://b.example/y"},
				},
			},
			want: []string{"https://a.example/x", "https://b.example/y"},
		},
		{
			name: "duplicates dropped",
			msg: tg.Message{
				Message: "https://a.example/x и ещё раз https://a.example/x",
				Entities: []tg.MessageEntityClass{
					&tg.MessageEntityTextURL{URL: "https://a.example/x"},
				},
			},
			want: []string{"https://a.example/x"},
		},
		{
			name: "trailing punctuation trimmed",
			msg:  tg.Message{Message: "(см. https://a.example/x)"},
			want: []string{"https://a.example/x"},
		},
		{
			name: "no urls",
			msg:  tg.Message{Message: "просто текст"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageURLs(&tt.msg))
		})
	}
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "https://t.me/ai_news/42", permalink("ai_news", 42))
	assert.Empty(t, permalink("", 42))
}

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "+79991234567", sanitizePhone(" +7 (999) 123-45-67 "))
	assert.Equal(t, "123456", sanitizePhone("12-34-56"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+79****67", maskPhone("+79991234567"))
	assert.Equal(t, "****", maskPhone("123"))
}
