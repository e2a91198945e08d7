package timeline

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Timeline represents a multi-block typing script for a single video.
type Timeline struct {
	Version string  `yaml:"version"`
	Blocks  []Block `yaml:"blocks"`
}

// Block is one text segment with its own position on the timeline.
type Block struct {
	Text     string  `yaml:"text"`
	Start    float64 `yaml:"start"`    // Timeline-absolute start time in seconds
	Duration float64 `yaml:"duration"` // Seconds the typed-out reveal spans
}

// End returns the timeline-absolute end time of the block.
func (b Block) End() float64 { return b.Start + b.Duration }

// CharsPerSecond returns the block-local reveal rate: the typed-out reveal
// exactly spans the block's allotted duration, regardless of the global
// configuration.
func (b Block) CharsPerSecond() float64 {
	n := len([]rune(b.Text))
	if n == 0 || b.Duration <= 0 {
		return 1
	}
	return float64(n) / b.Duration
}

// Read loads a timeline from a YAML file and sorts its blocks by start time.
func Read(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tl Timeline
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, err
	}

	sort.SliceStable(tl.Blocks, func(i, j int) bool {
		return tl.Blocks[i].Start < tl.Blocks[j].Start
	})
	return &tl, nil
}

// Write saves a timeline to a YAML file.
func Write(tl *Timeline, path string) error {
	data, err := yaml.Marshal(tl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the blocks for usability: durations must be positive and
// blocks must not overlap (they are assumed sorted by Read).
func (t *Timeline) Validate() error {
	for i, b := range t.Blocks {
		if b.Duration <= 0 {
			return fmt.Errorf("блок %d: длительность %f некорректна", i, b.Duration)
		}
		if b.Text == "" {
			return fmt.Errorf("блок %d: пустой текст", i)
		}
		if i > 0 && b.Start < t.Blocks[i-1].End() {
			return fmt.Errorf("блок %d перекрывается с предыдущим (start %.2f < end %.2f)", i, b.Start, t.Blocks[i-1].End())
		}
	}
	return nil
}

// TotalEnd returns the end time of the last block.
func (t *Timeline) TotalEnd() float64 {
	end := 0.0
	for _, b := range t.Blocks {
		if b.End() > end {
			end = b.End()
		}
	}
	return end
}
