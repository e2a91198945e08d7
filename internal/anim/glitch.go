package anim

import "math"

// Literal substitution sets for the glitch style.
var (
	glitchSymbols = []rune(`!<>-_\/[]{}—=+*^?#$%&@`)
	glitchLetters = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	glitchNumbers = []rune("0123456789")
	glitchMixed   = append(append(append([]rune{}, glitchSymbols...), glitchLetters...), glitchNumbers...)
)

// GlitchCharset returns the substitution set for a charset name.
// Unknown names fall back to symbols.
func GlitchCharset(name string) []rune {
	switch name {
	case "letters":
		return glitchLetters
	case "numbers":
		return glitchNumbers
	case "mixed":
		return glitchMixed
	default:
		return glitchSymbols
	}
}

// GlitchSubstitute derives the substituted glyph and horizontal offset for a
// character mid-glitch. The pair is a pure function of (frameIndex,
// charIndex, glitchSpeed, charset) with no external randomness, so renders
// are reproducible.
func GlitchSubstitute(frameIndex, charIndex int, glitchSpeed float64, charset []rune) (rune, float64) {
	phase := math.Floor(float64(frameIndex)*glitchSpeed + float64(charIndex)*13.37)
	seed1 := frac(math.Sin(phase) * 10000)
	seed2 := frac(math.Cos(phase) * 10000)

	idx := int(math.Floor(seed1 * float64(len(charset))))
	if idx >= len(charset) {
		idx = len(charset) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return charset[idx], (seed2 - 0.5) * 6
}

// frac returns the positive fractional part of x.
func frac(x float64) float64 {
	return x - math.Floor(x)
}
