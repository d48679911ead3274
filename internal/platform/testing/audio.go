package testing

import (
	"math"
	"math/rand"
)

// SynthVoice renders n bytes of unsigned 8-bit audio: a few harmonics of
// pitch (cycles per 1024 samples) with seeded jitter, centred on 128.
// Different pitch/seed pairs give distinct but reproducible speakers.
func SynthVoice(n int, pitch float64, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		phase := 2 * math.Pi * pitch * float64(i) / 1024
		v := 55*math.Sin(phase) + 25*math.Sin(2*phase+0.3) + 12*math.Sin(3*phase+1.1)
		v += rng.Float64()*8 - 4
		out[i] = clampByte(128 + v)
	}
	return out
}

// SquareWave alternates 128+dev and 128-dev, giving mean 128 and variance dev².
func SquareWave(n int, dev int) []byte {
	out := make([]byte, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = clampByte(float64(128 + dev))
		} else {
			out[i] = clampByte(float64(128 - dev))
		}
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func clampByte(v float64) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(math.Round(v))
	}
}
