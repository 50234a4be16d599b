package theme

import (
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// DetectProfile reports TrueColor when the environment advertises 24-bit
// colour and ANSI256 otherwise. Palettes are never reduced below 256 colours.
func DetectProfile() termenv.Profile {
	if termenv.EnvColorProfile() == termenv.TrueColor {
		return termenv.TrueColor
	}
	for _, env := range []string{"COLORTERM", "TERM"} {
		v := strings.ToLower(os.Getenv(env))
		if strings.Contains(v, "truecolor") || strings.Contains(v, "24bit") || strings.Contains(v, "direct") {
			return termenv.TrueColor
		}
	}
	return termenv.ANSI256
}

// Resolve converts each role of p to a value lipgloss.Color accepts for the
// profile: the hex itself, or a palette index. Ascii resolves to no colour.
func Resolve(p PaletteHex, profile termenv.Profile) PaletteResolved {
	var out PaletteResolved
	src, dst := p.roles(), out.roles()
	for i := range src {
		*dst[i] = colorFor(*src[i].hex, profile)
	}
	return out
}

func colorFor(h Hex, profile termenv.Profile) string {
	switch c := profile.Convert(termenv.RGBColor(h)).(type) {
	case termenv.RGBColor:
		return string(c)
	case termenv.ANSI256Color:
		return strconv.Itoa(int(c))
	case termenv.ANSIColor:
		return strconv.Itoa(int(c))
	}
	return ""
}

// Detect loads the active palette and resolves it for the current terminal.
// Load errors fall back to the default palette.
func Detect(themesDir, active string) (PaletteResolved, string, error) {
	hex, id, err := LoadActive(themesDir, active)
	return Resolve(hex, DetectProfile()), id, err
}
