package textstyle

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestApply(t *testing.T) {
	tests := []struct {
		style Style
		in    string
		want  string
	}{
		{Normal, "Arsenal 1", "Arsenal 1"},
		{Bold, "Ab1", "𝐀𝐛𝟏"},
		{Italic, "hi", "ℎ𝑖"},
		{BoldItalic, "Ok", "𝑶𝒌"},
		{Monospace, "a0", "𝚊𝟶"},
		{Script, "Zz", "𝓩𝔃"},
		{Fullwidth, "Hi 5!", "Ｈｉ　５！"},
		{SmallCaps, "Hey You", "Hᴇʏ Yᴏᴜ"},
		{Bold, "é-ü", "é-ü"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.style, tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	s, err := Parse(" Bold_Italic ")
	require.NoError(t, err)
	assert.Equal(t, BoldItalic, s)

	s, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, Normal, s)

	_, err = Parse("gothic")
	assert.ErrorIs(t, err, ErrUnknownStyle)

	assert.Len(t, Styles(), 8)
}

// Styling never changes the number of runes.
func TestApply_PreservesRuneCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		style := rapid.SampledFrom(Styles()).Draw(t, "style")
		text := rapid.String().Draw(t, "text")
		if got := Apply(style, text); utf8.RuneCountInString(got) != utf8.RuneCountInString(text) {
			t.Fatalf("%s changed rune count of %q to %q", style, text, got)
		}
	})
}
