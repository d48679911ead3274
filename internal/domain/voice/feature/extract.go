// Package feature derives voice templates from raw 8-bit audio, scores
// templates against each other and grades recording quality.
package feature

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// FrameSize is the number of samples per analysis frame. A trailing
	// partial frame is ignored.
	FrameSize = 1024
	// MaxTemplateBytes caps the serialized template.
	MaxTemplateBytes = 2048
	// Midpoint is the zero level of unsigned 8-bit PCM.
	Midpoint = 128

	bytesPerFrame = 12
)

var (
	ErrEmpty      = errors.New("audio is shorter than one frame")
	ErrDegenerate = errors.New("audio carries no usable signal")
)

// Frame holds the three per-frame features in their serialized widths.
type Frame struct {
	Energy           float32
	ZeroCrossings    int32
	SpectralCentroid float32
	flat             bool
}

// Extract builds a template: energy, zero crossings and centroid of every
// full frame, little-endian, truncated to MaxTemplateBytes.
func Extract(audio []byte) ([]byte, error) {
	frames := len(audio) / FrameSize
	if frames == 0 {
		return nil, ErrEmpty
	}

	// frames beyond the cap never reach the template
	if limit := (MaxTemplateBytes + bytesPerFrame - 1) / bytesPerFrame; frames > limit {
		frames = limit
	}

	buf := make([]byte, 0, frames*bytesPerFrame)
	degenerate := true
	for i := 0; i < frames; i++ {
		f := AnalyzeFrame(audio[i*FrameSize : (i+1)*FrameSize])
		if !f.flat && (f.Energy != 0 || f.ZeroCrossings != 0 || f.SpectralCentroid != 0) {
			degenerate = false
		}
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f.Energy))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(f.ZeroCrossings))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f.SpectralCentroid))
	}
	if degenerate {
		return nil, ErrDegenerate
	}

	if len(buf) > MaxTemplateBytes {
		buf = buf[:MaxTemplateBytes]
	}
	return buf, nil
}

// AnalyzeFrame computes the features of a single frame.
func AnalyzeFrame(frame []byte) Frame {
	if len(frame) == 0 {
		return Frame{flat: true}
	}
	return Frame{
		Energy:           frameEnergy(frame),
		ZeroCrossings:    zeroCrossings(frame),
		SpectralCentroid: spectralCentroid(frame),
		flat:             constant(frame),
	}
}

func frameEnergy(frame []byte) float32 {
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return float32(sum / float64(len(frame)))
}

func zeroCrossings(frame []byte) int32 {
	var n int32
	for i := 1; i < len(frame); i++ {
		if (frame[i] >= Midpoint) != (frame[i-1] >= Midpoint) {
			n++
		}
	}
	return n
}

func spectralCentroid(frame []byte) float32 {
	var weighted, magnitude float64
	for i, s := range frame {
		m := math.Abs(float64(int(s) - Midpoint))
		weighted += float64(i) * m
		magnitude += m
	}
	if magnitude == 0 {
		return 0
	}
	return float32(weighted / magnitude)
}

func constant(frame []byte) bool {
	for _, s := range frame[1:] {
		if s != frame[0] {
			return false
		}
	}
	return true
}
