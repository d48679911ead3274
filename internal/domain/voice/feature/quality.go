package feature

import "math"

const (
	// AcceptableScore is the minimum overall score for enrollment-grade audio.
	AcceptableScore = 0.7
	snrEpsilon      = 0.001
)

// Recommendation texts, emitted in this order when their band applies.
const (
	RecommendPoor      = "Overall audio quality is poor. Consider re-recording in a quieter environment."
	RecommendNoise     = "High noise level detected. Try recording in a quieter location or use noise cancellation."
	RecommendLowSignal = "Low signal strength. Speak closer to the microphone or increase recording volume."
	RecommendExcellent = "Excellent audio quality. This recording is suitable for voice enrollment."
)

// QualityReport grades a recording.
type QualityReport struct {
	OverallScore    float64  `json:"overallScore"`
	NoiseLevel      float64  `json:"noiseLevel"`
	SignalStrength  float64  `json:"signalStrength"`
	IsAcceptable    bool     `json:"isAcceptable"`
	Recommendations []string `json:"recommendations"`
}

// Analyze averages frame energy and frame variance and derives a score from
// their ratio. Audio shorter than one frame yields an all-zero report.
func Analyze(audio []byte) QualityReport {
	frames := len(audio) / FrameSize

	var energySum, noiseSum float64
	for i := 0; i < frames; i++ {
		frame := audio[i*FrameSize : (i+1)*FrameSize]
		energySum += float64(frameEnergy(frame))
		noiseSum += frameVariance(frame)
	}

	var report QualityReport
	if frames > 0 {
		report.SignalStrength = energySum / float64(frames)
		report.NoiseLevel = noiseSum / float64(frames)
		snr := report.SignalStrength / (report.NoiseLevel + snrEpsilon)
		report.OverallScore = math.Min(1, snr/10)
	}
	report.IsAcceptable = report.OverallScore >= AcceptableScore
	report.Recommendations = recommendations(report)
	return report
}

func frameVariance(frame []byte) float64 {
	var mean float64
	for _, s := range frame {
		mean += float64(s)
	}
	mean /= float64(len(frame))

	var variance float64
	for _, s := range frame {
		d := float64(s) - mean
		variance += d * d
	}
	return variance / float64(len(frame))
}

func recommendations(r QualityReport) []string {
	out := make([]string, 0, 3)
	if r.OverallScore < 0.5 {
		out = append(out, RecommendPoor)
	}
	if r.NoiseLevel > 0.3 {
		out = append(out, RecommendNoise)
	}
	if r.SignalStrength < 0.2 {
		out = append(out, RecommendLowSignal)
	}
	if r.OverallScore >= 0.8 {
		out = append(out, RecommendExcellent)
	}
	return out
}
