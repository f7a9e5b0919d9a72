package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	chunk := func(content string) Chunk {
		return Chunk{Content: content, Source: "notes.txt"}
	}

	t.Run("Collapses Newline Runs", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a\n\n\n\nb")})
		assert.Len(t, out, 1)
		assert.Equal(t, "a\n\nb", out[0].Content)
	})

	t.Run("Collapses CRLF Runs", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a\r\n\r\n\r\nb")})
		assert.Len(t, out, 1)
		assert.Equal(t, "a\n\nb", out[0].Content)
	})

	t.Run("Two Newlines Untouched", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a\n\nb")})
		assert.Equal(t, "a\n\nb", out[0].Content)
	})

	t.Run("Collapses Space Runs", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a      b")})
		assert.Equal(t, "a b", out[0].Content)
	})

	t.Run("Four Spaces Untouched", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a    b")})
		assert.Equal(t, "a    b", out[0].Content)
	})

	t.Run("Collapses Tab Runs", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a\t\t\t\t\tb")})
		assert.Equal(t, "a\tb", out[0].Content)
	})

	t.Run("Drops Empty Chunks", func(t *testing.T) {
		out := Normalize([]Chunk{chunk(""), chunk("keep")})
		assert.Len(t, out, 1)
		assert.Equal(t, "keep", out[0].Content)
	})

	t.Run("Long Space Run Collapses To One", func(t *testing.T) {
		out := Normalize([]Chunk{chunk("a" + strings.Repeat(" ", 40) + "b")})
		assert.Equal(t, "a b", out[0].Content)
	})

	t.Run("Metadata Preserved", func(t *testing.T) {
		in := Chunk{Content: "a\n\n\n\nb", Source: "s", Title: "t", Type: "text/plain", Modified: 7, Provider: "files"}
		out := Normalize([]Chunk{in})
		assert.Equal(t, "s", out[0].Source)
		assert.Equal(t, "t", out[0].Title)
		assert.Equal(t, int64(7), out[0].Modified)
		assert.Equal(t, "files", out[0].Provider)
	})
}

func TestCoerceEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"1700000000", 1700000000},
		{"garbage", 0},
		{"12.5", 0},
		{"-100", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceEpoch(tt.in), "coerceEpoch(%q)", tt.in)
	}
}
