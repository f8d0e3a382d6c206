// Package textstyle renders ASCII text with Unicode letter variants for
// profile display names and bios.
package textstyle

import (
	"errors"
	"strings"
)

// ErrUnknownStyle is returned for style names outside the supported set.
var ErrUnknownStyle = errors.New("unknown text style")

// Style names a rendering.
type Style string

const (
	Normal     Style = "normal"
	Bold       Style = "bold"
	Italic     Style = "italic"
	BoldItalic Style = "bold_italic"
	Monospace  Style = "monospace"
	Script     Style = "script"
	Fullwidth  Style = "fullwidth"
	SmallCaps  Style = "smallcaps"
)

var all = []Style{Normal, Bold, Italic, BoldItalic, Monospace, Script, Fullwidth, SmallCaps}

// Styles returns every supported style in menu order.
func Styles() []Style {
	out := make([]Style, len(all))
	copy(out, all)
	return out
}

// Parse validates a style name. The empty string means Normal.
func Parse(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Normal, nil
	}
	for _, s := range all {
		if string(s) == name {
			return s, nil
		}
	}
	return "", ErrUnknownStyle
}

// alphabet describes where a style's A, a and 0 start. A zero base leaves
// that class unchanged.
type alphabet struct {
	upper, lower, digit rune
	// exceptions for letters Unicode encodes outside the contiguous block
	holes map[rune]rune
}

var alphabets = map[Style]alphabet{
	Bold:       {upper: 0x1D400, lower: 0x1D41A, digit: 0x1D7CE},
	Italic:     {upper: 0x1D434, lower: 0x1D44E, holes: map[rune]rune{'h': 0x210E}},
	BoldItalic: {upper: 0x1D468, lower: 0x1D482},
	Monospace:  {upper: 0x1D670, lower: 0x1D68A, digit: 0x1D7F6},
	Script:     {upper: 0x1D4D0, lower: 0x1D4EA},
}

const smallCaps = "ᴀʙᴄᴅᴇꜰɢʜɪᴊᴋʟᴍɴᴏᴘǫʀꜱᴛᴜᴠᴡxʏᴢ"

var smallCapsRunes = []rune(smallCaps)

// Apply renders text in style. Runes outside ASCII letters and digits are
// kept as they are.
func Apply(style Style, text string) string {
	switch style {
	case Normal, "":
		return text
	case Fullwidth:
		return strings.Map(fullwidth, text)
	case SmallCaps:
		return strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' {
				return smallCapsRunes[r-'a']
			}
			return r
		}, text)
	}

	a, ok := alphabets[style]
	if !ok {
		return text
	}
	return strings.Map(func(r rune) rune {
		if h, ok := a.holes[r]; ok {
			return h
		}
		switch {
		case r >= 'A' && r <= 'Z' && a.upper != 0:
			return a.upper + (r - 'A')
		case r >= 'a' && r <= 'z' && a.lower != 0:
			return a.lower + (r - 'a')
		case r >= '0' && r <= '9' && a.digit != 0:
			return a.digit + (r - '0')
		}
		return r
	}, text)
}

func fullwidth(r rune) rune {
	switch {
	case r == ' ':
		return 0x3000
	case r >= '!' && r <= '~':
		return r + 0xFEE0
	}
	return r
}
