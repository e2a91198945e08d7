package timeline

import "github.com/ivlev/text2video/internal/anim"

// Sequencer resolves which block is active at a given frame time and hands
// out the block-local reveal clock, time-shifted to the block's position on
// the timeline.
type Sequencer struct {
	Blocks []Block
	FPS    int
}

// ActiveBlock returns the index of the block covering time t (first match
// wins; blocks are assumed sorted and non-overlapping), or -1 when no block
// is active and only the background should render.
func (s *Sequencer) ActiveBlock(t float64) int {
	for i, b := range s.Blocks {
		if t >= b.Start && t <= b.End() {
			return i
		}
	}
	return -1
}

// BlockClock returns a reveal clock for the block, plus the frame offset of
// the block's origin on the timeline. Per-character progress math is the
// same as in single-block mode, just shifted: startFrame(charIndex) =
// (charIndex/blockCPS)*fps + block.Start*fps.
func (s *Sequencer) BlockClock(i int) (anim.Clock, float64) {
	b := s.Blocks[i]
	clock := anim.Clock{FPS: s.FPS, CharsPerSecond: b.CharsPerSecond()}
	return clock, b.Start * float64(s.FPS)
}

// VisibleCount computes the visible character count inside block i at the
// timeline-absolute frame index.
func (s *Sequencer) VisibleCount(i int, frameIndex int) int {
	b := s.Blocks[i]
	clock, originFrame := s.BlockClock(i)
	local := frameIndex - int(originFrame)
	if local < 0 {
		return 0
	}
	return clock.VisibleCount(local, len([]rune(b.Text)))
}

// CharFrame resolves the draw state of a character of block i at the
// timeline-absolute frame index, by shifting the frame into block-local time.
func (s *Sequencer) CharFrame(i int, style string, frameIndex int, subSampleOffset float64, charIndex, visibleCount, revealFrames int, revealOffsetPx, glitchSpeed float64, charset []rune) anim.CharState {
	clock, originFrame := s.BlockClock(i)
	localFrame := frameIndex - int(originFrame)
	return clock.CharFrame(style, localFrame, subSampleOffset, charIndex, visibleCount, revealFrames, revealOffsetPx, glitchSpeed, charset)
}

// FullyRevealedBefore is the timeline-shifted version of
// anim.Clock.FullyRevealedBefore.
func (s *Sequencer) FullyRevealedBefore(i int, frameIndex, charIndex, revealFrames int) bool {
	clock, originFrame := s.BlockClock(i)
	return clock.FullyRevealedBefore(frameIndex-int(originFrame), charIndex, revealFrames)
}
