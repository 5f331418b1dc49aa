package textsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const symmetryTolerance = 1e-9

func TestSimilarityIdentical(t *testing.T) {
	inputs := []string{
		"OpenAI выпустила новую модель",
		"a",
		"Релиз фреймворка для агентов",
	}

	for _, s := range inputs {
		assert.InDelta(t, 1.0, Similarity(s, s), symmetryTolerance)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("  ", "\t\n"))
	assert.Equal(t, 0.0, Similarity("", "что-то"))
	assert.Equal(t, 0.0, Similarity("что-то", ""))
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"OpenAI выпустила новую модель для кода", "OpenAI представила новую модель для программирования"},
		{"курс валют вырос", "совсем другая новость"},
		{"abcdef", "abcxef"},
	}

	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		assert.InDelta(t, ab, ba, symmetryTolerance, "similarity(%q, %q) must be symmetric", p[0], p[1])
	}
}

func TestSimilarityOrdersRelatedAboveUnrelated(t *testing.T) {
	a := "OpenAI выпустила новую модель для кода"
	b := "OpenAI представила новую модель для программирования"
	c := "Курс валют вырос на рынке"

	assert.Greater(t, Similarity(a, b), Similarity(a, c))
}

func TestSimilarityCaseAndWhitespaceInsensitive(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Новая   Модель", "новая модель"), symmetryTolerance)
	assert.InDelta(t, 1.0, Similarity("  РЕЛИЗ \t фреймворка ", "релиз фреймворка"), symmetryTolerance)
}

func TestSimilarityKnownRatio(t *testing.T) {
	// "abcd" vs "bcde": longest common block "bcd" (3), T=8, ratio 6/8.
	got := Similarity("abcd", "bcde")
	assert.True(t, math.Abs(got-0.75) < symmetryTolerance, "got %f", got)
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"abc", "xyz"},
		{"одна строка", "другая строка"},
		{"", "x"},
	}

	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}
