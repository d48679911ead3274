package feature

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	testhelpers "voiceprint-server-go/internal/platform/testing"
)

func TestExtractDeterministic(t *testing.T) {
	audio := testhelpers.SynthVoice(8*FrameSize, 5, 42)

	a, err := Extract(audio)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	b, err := Extract(audio)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("templates differ for identical audio")
	}
	if len(a) != 8*12 {
		t.Fatalf("template length = %d, want %d", len(a), 8*12)
	}
}

func TestExtractDiscardsPartialFrame(t *testing.T) {
	audio := testhelpers.SynthVoice(2*FrameSize+700, 3, 1)
	tpl, err := Extract(audio)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tpl) != 24 {
		t.Fatalf("template length = %d, want 24", len(tpl))
	}
}

func TestExtractLayout(t *testing.T) {
	frame := testhelpers.SquareWave(FrameSize, 10)
	tpl, err := Extract(frame)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	energy := math.Float32frombits(binary.LittleEndian.Uint32(tpl[0:4]))
	crossings := int32(binary.LittleEndian.Uint32(tpl[4:8]))
	centroid := math.Float32frombits(binary.LittleEndian.Uint32(tpl[8:12]))

	// (138² + 118²) / 2
	if energy != float32((138*138+118*118)/2) {
		t.Errorf("energy = %v", energy)
	}
	if crossings != FrameSize-1 {
		t.Errorf("zero crossings = %d, want %d", crossings, FrameSize-1)
	}
	// uniform magnitude: centroid is the mean index
	if math.Abs(float64(centroid)-511.5) > 1e-3 {
		t.Errorf("centroid = %v, want 511.5", centroid)
	}
}

func TestExtractCapsTemplate(t *testing.T) {
	audio := testhelpers.SynthVoice(300*FrameSize, 7, 9)
	tpl, err := Extract(audio)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tpl) != MaxTemplateBytes {
		t.Fatalf("template length = %d, want %d", len(tpl), MaxTemplateBytes)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name  string
		audio []byte
		want  error
	}{
		{"empty", nil, ErrEmpty},
		{"shorter than a frame", testhelpers.SynthVoice(FrameSize-1, 3, 1), ErrEmpty},
		{"digital silence", testhelpers.Constant(4*FrameSize, Midpoint), ErrDegenerate},
		{"all zero bytes", testhelpers.Constant(2*FrameSize, 0), ErrDegenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Extract(tt.audio); !errors.Is(err, tt.want) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScoreBoundsAndSelfSimilarity(t *testing.T) {
	templates := make([][]byte, 0, 4)
	for i, pitch := range []float64{2, 5, 11, 17} {
		tpl, err := Extract(testhelpers.SynthVoice(6*FrameSize, pitch, int64(i)))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		templates = append(templates, tpl)
	}

	for i, a := range templates {
		if got := Score(a, a); got != 1 {
			t.Errorf("Score(t%d, t%d) = %v, want 1", i, i, got)
		}
		for j, b := range templates {
			s := Score(a, b)
			if s < 0 || s > 1 {
				t.Errorf("Score(t%d, t%d) = %v out of [0,1]", i, j, s)
			}
			if s != Score(b, a) {
				t.Errorf("Score is not symmetric for t%d, t%d", i, j)
			}
		}
	}
}

func TestScoreEdgeCases(t *testing.T) {
	if Score(nil, []byte{1}) != 0 {
		t.Error("empty template should score 0")
	}
	if Score([]byte{0, 0}, []byte{1, 2}) != 0 {
		t.Error("zero norm should score 0")
	}
	// only the common prefix counts
	if Score([]byte{3, 4}, []byte{3, 4, 200, 1}) != 1 {
		t.Error("identical prefix should score 1")
	}
}

func TestAnalyzeBands(t *testing.T) {
	clean := Analyze(testhelpers.SquareWave(4*FrameSize, 10))
	if clean.OverallScore != 1 || !clean.IsAcceptable {
		t.Fatalf("clean report = %+v", clean)
	}
	if !contains(clean.Recommendations, RecommendExcellent) || !contains(clean.Recommendations, RecommendNoise) {
		t.Fatalf("clean recommendations = %v", clean.Recommendations)
	}

	noisy := Analyze(testhelpers.SquareWave(4*FrameSize, 120))
	if noisy.IsAcceptable || noisy.OverallScore >= 0.5 {
		t.Fatalf("noisy report = %+v", noisy)
	}
	if !contains(noisy.Recommendations, RecommendPoor) {
		t.Fatalf("noisy recommendations = %v", noisy.Recommendations)
	}
}

func TestAnalyzeSilenceAndShortInput(t *testing.T) {
	silent := Analyze(testhelpers.Constant(2*FrameSize, 0))
	if silent.SignalStrength != 0 || !contains(silent.Recommendations, RecommendLowSignal) {
		t.Fatalf("silent report = %+v", silent)
	}

	short := Analyze([]byte{1, 2, 3})
	if short.OverallScore != 0 || short.IsAcceptable {
		t.Fatalf("short report = %+v", short)
	}
	if !contains(short.Recommendations, RecommendPoor) || !contains(short.Recommendations, RecommendLowSignal) {
		t.Fatalf("short recommendations = %v", short.Recommendations)
	}
}

func TestAnalyzeNoiseMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for _, dev := range []int{0, 10, 30, 50, 80, 100, 120} {
		r := Analyze(testhelpers.SquareWave(4*FrameSize, dev))
		if r.OverallScore > prev {
			t.Fatalf("score rose from %v to %v at deviation %d", prev, r.OverallScore, dev)
		}
		prev = r.OverallScore
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
