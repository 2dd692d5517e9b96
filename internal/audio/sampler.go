// internal/audio/sampler.go
package audio

import (
	"errors"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

var (
	// ErrInvalidSampleRate indicates the sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidChannels indicates at least one channel is required
	ErrInvalidChannels = errors.New("channels must be positive")
)

// Sampler reads the first channel of a capture stream one sample at a time.
// It is also the stream's Clock: Now is the stream position of the next
// frame, so blocks the capture dropped still advance time.
type Sampler struct {
	blocks   <-chan Block
	scale    sampler.Scale
	rate     time.Duration
	channels int

	block   []float32
	pos     int
	frame   uint64 // stream position of block[pos]
	pending *Block // received by Now, not yet read
	reads   int64
}

// NewSampler reads blocks of interleaved samples with the given layout.
func NewSampler(blocks <-chan Block, sampleRate, channels uint32, scale sampler.Scale) (*Sampler, error) {
	if sampleRate == 0 {
		return nil, ErrInvalidSampleRate
	}
	if channels == 0 {
		return nil, ErrInvalidChannels
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{
		blocks:   blocks,
		scale:    scale,
		rate:     time.Duration(sampleRate),
		channels: int(channels),
	}, nil
}

func (s *Sampler) exhausted() bool {
	return s.pos >= len(s.block)
}

func (s *Sampler) load(b Block) {
	s.block = b.Samples
	s.pos = 0
	s.frame = b.Start
}

// Read blocks until a sample is available. It returns sampler.ErrClosed once
// the stream is closed and drained.
func (s *Sampler) Read() (sampler.RawSample, error) {
	for s.exhausted() {
		if s.pending != nil {
			s.load(*s.pending)
			s.pending = nil
			continue
		}
		b, ok := <-s.blocks
		if !ok {
			return 0, sampler.ErrClosed
		}
		s.load(b)
	}

	v := s.block[s.pos]
	s.pos += s.channels
	s.frame++
	s.reads++
	return s.scale.FromNormalized(v), nil
}

// Now returns the stream time of the next Read. When the current block is
// used up it looks at the next queued block, without waiting, so a gap left
// by dropped blocks is reflected before the read that crosses it.
func (s *Sampler) Now() time.Duration {
	if s.exhausted() && s.pending == nil {
		select {
		case b, ok := <-s.blocks:
			if ok {
				s.pending = &b
			}
		default:
		}
	}
	frame := s.frame
	if s.exhausted() && s.pending != nil {
		frame = s.pending.Start
	}
	return time.Duration(frame) * time.Second / s.rate
}

// Discard drops every reading queued ahead of the consumer and returns how
// many frames were skipped. The clock moves to the newest discarded frame.
func (s *Sampler) Discard() int {
	skipped := 0
	if !s.exhausted() {
		remaining := (len(s.block) - s.pos + s.channels - 1) / s.channels
		skipped += remaining
		s.frame += uint64(remaining)
		s.block, s.pos = nil, 0
	}
	if s.pending != nil {
		s.skip(*s.pending, &skipped)
		s.pending = nil
	}
	for {
		select {
		case b, ok := <-s.blocks:
			if !ok {
				return skipped
			}
			s.skip(b, &skipped)
		default:
			return skipped
		}
	}
}

func (s *Sampler) skip(b Block, skipped *int) {
	frames := len(b.Samples) / s.channels
	*skipped += frames
	s.frame = b.Start + uint64(frames)
}

// Reads returns how many samples have been consumed
func (s *Sampler) Reads() int64 {
	return s.reads
}
