package anim

import "math"

// Clock converts frame indices into reveal progress for a fixed
// characters-per-second rate. It is a pure value, safe to copy.
type Clock struct {
	FPS            int
	CharsPerSecond float64
}

// VisibleCount returns how many characters are visible at the given frame.
// Monotonically non-decreasing in frameIndex, capped at totalChars.
func (c Clock) VisibleCount(frameIndex int, totalChars int) int {
	elapsed := float64(frameIndex) / float64(c.FPS)
	n := math.Floor(math.Min(float64(totalChars), elapsed*c.CharsPerSecond))
	return int(n)
}

// StartFrame returns the (fractional) frame at which the character with the
// given index is scheduled to appear.
func (c Clock) StartFrame(charIndex int) float64 {
	return (float64(charIndex) / c.CharsPerSecond) * float64(c.FPS)
}

// TotalFrames returns the frame count for a single-block render:
// full reveal plus the end hold.
func (c Clock) TotalFrames(totalChars int, endHold float64) int {
	seconds := float64(totalChars)/c.CharsPerSecond + endHold
	return int(math.Ceil(seconds * float64(c.FPS)))
}

// TimelineFrames returns the frame count for a timeline render with an
// externally supplied total duration (usually the audio track length).
func TimelineFrames(totalDuration float64, fps int) int {
	return int(math.Ceil(totalDuration * float64(fps)))
}

// Progress returns the normalized reveal progress of a character at the
// given frame, in units of revealFrames. subSampleOffset in [-1,0] is used
// by motion-blur sub-sampling.
func (c Clock) Progress(frameIndex int, subSampleOffset float64, charIndex int, revealFrames int) float64 {
	return (float64(frameIndex) + subSampleOffset - c.StartFrame(charIndex)) / float64(revealFrames)
}

// EaseOutCubic applies the reveal easing curve: 1-(1-t)^3.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// CharState is the resolved draw state of one character for one
// (sub-)sample: its opacity, horizontal offset from the rest position,
// and an optional substituted glyph (glitch style).
type CharState struct {
	Opacity    float64
	XOffset    float64
	Substitute rune // 0 = draw the true glyph
}

// Hidden reports whether drawing the character can be skipped entirely.
// The 0.01 cutoff is a perf guard, not a correctness rule.
func (s CharState) Hidden() bool {
	return s.Opacity <= 0.01
}

// CharFrame resolves the draw state of the character at charIndex for the
// given frame and style. visibleCount comes from VisibleCount (or the
// sequencer in timeline mode); glitch parameters are ignored by the other
// styles.
func (c Clock) CharFrame(style string, frameIndex int, subSampleOffset float64, charIndex, visibleCount, revealFrames int, revealOffsetPx float64, glitchSpeed float64, charset []rune) CharState {
	progress := c.Progress(frameIndex, subSampleOffset, charIndex, revealFrames)

	switch style {
	case "typewriter":
		if charIndex >= visibleCount || progress <= 0 {
			return CharState{}
		}
		return CharState{Opacity: 1}

	case "glitch":
		if progress <= -1 {
			return CharState{}
		}
		if progress <= 1.5 {
			glyph, xOff := GlitchSubstitute(frameIndex, charIndex, glitchSpeed, charset)
			return CharState{Opacity: 1, XOffset: xOff, Substitute: glyph}
		}
		return CharState{Opacity: 1}

	default:
		if charIndex >= visibleCount {
			return CharState{}
		}
		// Только последний появившийся символ анимируется, остальные в покое.
		if charIndex == visibleCount-1 {
			if progress <= 0 {
				return CharState{}
			}
			if progress < 1 {
				op := EaseOutCubic(progress)
				return CharState{Opacity: op, XOffset: revealOffsetPx * (1 - op)}
			}
		}
		return CharState{Opacity: 1}
	}
}

// FullyRevealedBefore reports whether the character had already finished its
// reveal on the previous frame. Such characters render once at full weight
// instead of being motion-blur sub-sampled.
func (c Clock) FullyRevealedBefore(frameIndex, charIndex, revealFrames int) bool {
	return (float64(frameIndex-1)-c.StartFrame(charIndex))/float64(revealFrames) >= 1
}

// BlurSamples returns the motion-blur sub-sample count and per-sample weight
// for a blur amount in [0,1). Zero blur means a single full-weight sample.
func BlurSamples(motionBlur float64) (samples int, weight float64) {
	if motionBlur <= 0 {
		return 1, 1
	}
	samples = int(math.Floor(motionBlur * 40))
	if samples < 2 {
		samples = 2
	}
	return samples, 1 / float64(samples)
}

// CursorVisible returns the blink state of the cursor at the given frame.
func CursorVisible(frameIndex, fps int, cursorSpeed float64) bool {
	period := float64(fps) / (2 * cursorSpeed)
	return int(math.Floor(float64(frameIndex)/period))%2 == 0
}
