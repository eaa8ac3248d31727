package sweetness

import (
	"reflect"
	"testing"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func TestScoreWeightedProbabilities(t *testing.T) {
	tests := []struct {
		name  string
		probs models.Probabilities
		want  int
	}{
		{"pure high", models.Probabilities{High: fp(1), Medium: fp(0), Low: fp(0)}, 95},
		{"pure low", models.Probabilities{High: fp(0), Medium: fp(0), Low: fp(1)}, 25},
		{"pure medium", models.Probabilities{High: fp(0), Medium: fp(1), Low: fp(0)}, 65},
		{"mixed", models.Probabilities{High: fp(0.70), Medium: fp(0.25), Low: fp(0.05)}, 84},
		{"missing classes count as zero", models.Probabilities{High: fp(0.5)}, 48},
		// The formula does not renormalize; a sum above 1 pushes the
		// score past the convex range on purpose.
		{"unnormalized sum", models.Probabilities{High: fp(0.9), Medium: fp(0.9)}, 144},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := tt.probs
			pred := &models.PredictionResponse{Probabilities: &probs}
			got, method := Score(pred)
			if got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
			if method != MethodProbabilities {
				t.Fatalf("expected method %q, got %q", MethodProbabilities, method)
			}
		})
	}
}

func TestScoreClassLookupFallback(t *testing.T) {
	tests := []struct {
		name       string
		prediction *string
		want       int
	}{
		{"high", sp(models.ClassHigh), 85},
		{"medium", sp(models.ClassMedium), 65},
		{"low", sp(models.ClassLow), 35},
		{"unrecognized", sp("Banana"), 50},
		{"absent", nil, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &models.PredictionResponse{Prediction: tt.prediction}
			got, method := Score(pred)
			if got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
			if method != MethodClassLookup {
				t.Fatalf("expected method %q, got %q", MethodClassLookup, method)
			}
		})
	}
}

// Each label function must return exactly one of its enumerated values
// for every score, no gaps.
func TestLabelFunctionsAreTotal(t *testing.T) {
	categories := map[string]bool{"High Sweetness": true, "Medium Sweetness": true, "Low Sweetness": true, "Very Low Sweetness": true}
	titles := map[string]bool{"High": true, "Medium": true, "Low": true, "Very Low": true}
	colors := map[string]bool{"green": true, "blue": true, "amber": true, "gray": true}
	recommendations := map[string]bool{"Perfect for eating": true, "Great for most uses": true, "Best for cooking": true, "Wait a few days": true}
	ripeness := map[string]bool{"Ready": true, "Good": true, "Wait": true}
	experiences := map[string]bool{"Great": true, "Good": true, "Needs improvement": true}
	uses := map[string]bool{"Eat fresh": true, "Cook with it": true}

	for score := 0; score <= 100; score++ {
		if !categories[Category(score)] {
			t.Fatalf("Category(%d) = %q, not an enumerated value", score, Category(score))
		}
		if !titles[DisplayTitle(score)] {
			t.Fatalf("DisplayTitle(%d) = %q, not an enumerated value", score, DisplayTitle(score))
		}
		if !colors[ColorToken(score)] {
			t.Fatalf("ColorToken(%d) = %q, not an enumerated value", score, ColorToken(score))
		}
		if !recommendations[Recommendation(score)] {
			t.Fatalf("Recommendation(%d) = %q, not an enumerated value", score, Recommendation(score))
		}
		if !ripeness[Ripeness(score)] {
			t.Fatalf("Ripeness(%d) = %q, not an enumerated value", score, Ripeness(score))
		}
		if !experiences[EatingExperience(score)] {
			t.Fatalf("EatingExperience(%d) = %q, not an enumerated value", score, EatingExperience(score))
		}
		if !uses[BestUse(score)] {
			t.Fatalf("BestUse(%d) = %q, not an enumerated value", score, BestUse(score))
		}
	}
}

// The threshold tables use deliberately different cut points.
func TestLabelThresholdBoundaries(t *testing.T) {
	tests := []struct {
		score          int
		category       string
		title          string
		color          string
		recommendation string
	}{
		{95, "High Sweetness", "High", "green", "Perfect for eating"},
		{80, "High Sweetness", "High", "green", "Perfect for eating"},
		{79, "Medium Sweetness", "High", "green", "Perfect for eating"},
		{75, "Medium Sweetness", "High", "green", "Perfect for eating"},
		{74, "Medium Sweetness", "Medium", "blue", "Great for most uses"},
		{60, "Medium Sweetness", "Medium", "blue", "Great for most uses"},
		{59, "Low Sweetness", "Low", "amber", "Best for cooking"},
		{45, "Low Sweetness", "Low", "amber", "Best for cooking"},
		{44, "Low Sweetness", "Very Low", "gray", "Wait a few days"},
		{40, "Low Sweetness", "Very Low", "gray", "Wait a few days"},
		{39, "Very Low Sweetness", "Very Low", "gray", "Wait a few days"},
		{0, "Very Low Sweetness", "Very Low", "gray", "Wait a few days"},
	}

	for _, tt := range tests {
		if got := Category(tt.score); got != tt.category {
			t.Errorf("Category(%d) = %q, want %q", tt.score, got, tt.category)
		}
		if got := DisplayTitle(tt.score); got != tt.title {
			t.Errorf("DisplayTitle(%d) = %q, want %q", tt.score, got, tt.title)
		}
		if got := ColorToken(tt.score); got != tt.color {
			t.Errorf("ColorToken(%d) = %q, want %q", tt.score, got, tt.color)
		}
		if got := Recommendation(tt.score); got != tt.recommendation {
			t.Errorf("Recommendation(%d) = %q, want %q", tt.score, got, tt.recommendation)
		}
	}
}

func TestTransformSuccess(t *testing.T) {
	pred := &models.PredictionResponse{
		IsPineapple:         true,
		DetectionConfidence: 0.93,
		Detections: []models.Detection{
			{BBox: models.BBox{10, 20, 200, 240}, Confidence: 0.93, Class: "pineapple"},
		},
		Prediction:    sp(models.ClassHigh),
		Confidence:    fp(0.88),
		Probabilities: &models.Probabilities{High: fp(0.70), Medium: fp(0.25), Low: fp(0.05)},
	}

	outcome := Transform(pred, 1500*time.Millisecond)

	if outcome.Status != models.StatusSuccess {
		t.Fatalf("expected success status, got %s", outcome.Status)
	}
	if outcome.Sweetness == nil {
		t.Fatal("success outcome must carry a sweetness assessment")
	}
	if outcome.Sweetness.Score != 84 {
		t.Fatalf("expected score 84, got %d", outcome.Sweetness.Score)
	}
	if outcome.Sweetness.Category != "High Sweetness" {
		t.Fatalf("expected High Sweetness, got %q", outcome.Sweetness.Category)
	}
	if outcome.Sweetness.DisplayTitle != "High" {
		t.Fatalf("expected display title High, got %q", outcome.Sweetness.DisplayTitle)
	}
	if outcome.Sweetness.QualityMetrics.Ripeness != "Ready" {
		t.Fatalf("expected ripeness Ready, got %q", outcome.Sweetness.QualityMetrics.Ripeness)
	}
	if outcome.Sweetness.Confidence != 0.88 {
		t.Fatalf("expected confidence passthrough 0.88, got %f", outcome.Sweetness.Confidence)
	}
	if outcome.BoundingBox == nil || (*outcome.BoundingBox)[2] != 200 {
		t.Fatalf("expected first detection bounding box, got %v", outcome.BoundingBox)
	}
}

func TestTransformNoPineapple(t *testing.T) {
	pred := &models.PredictionResponse{IsPineapple: false}

	outcome := Transform(pred, time.Second)

	if outcome.Status != models.StatusNoPineapple {
		t.Fatalf("expected no_pineapple status, got %s", outcome.Status)
	}
	if outcome.Sweetness != nil {
		t.Fatal("no_pineapple outcome must not carry a sweetness assessment")
	}
	if outcome.Message == "" {
		t.Fatal("no_pineapple outcome must carry the fixed message")
	}
}

func TestTransformDegenerateResponse(t *testing.T) {
	// Detected but the classifier gave us nothing to score.
	pred := &models.PredictionResponse{IsPineapple: true, DetectionConfidence: 0.9}

	outcome := Transform(pred, time.Second)

	if outcome.Status != models.StatusError {
		t.Fatalf("expected error status, got %s", outcome.Status)
	}
	if outcome.Sweetness != nil {
		t.Fatal("error outcome must not carry a sweetness assessment")
	}
}

func TestTransformDefaultsConfidence(t *testing.T) {
	pred := &models.PredictionResponse{
		IsPineapple: true,
		Prediction:  sp(models.ClassMedium),
	}

	outcome := Transform(pred, time.Second)

	if outcome.Status != models.StatusSuccess {
		t.Fatalf("expected success status, got %s", outcome.Status)
	}
	if outcome.Sweetness.Score != 65 {
		t.Fatalf("expected fallback score 65, got %d", outcome.Sweetness.Score)
	}
	if outcome.Sweetness.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %f", outcome.Sweetness.Confidence)
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	pred := &models.PredictionResponse{
		IsPineapple:   true,
		Prediction:    sp(models.ClassHigh),
		Confidence:    fp(0.9),
		Probabilities: &models.Probabilities{High: fp(0.6), Medium: fp(0.3), Low: fp(0.1)},
	}

	first := Transform(pred, 2*time.Second)
	second := Transform(pred, 2*time.Second)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Transform must be pure: identical inputs produced different outcomes")
	}
}

func TestScoreStaysInConvexRangeWhenNormalized(t *testing.T) {
	// For probabilities summing to 1 the score is a convex combination
	// of the three weights.
	cases := []models.Probabilities{
		{High: fp(1), Medium: fp(0), Low: fp(0)},
		{High: fp(0.2), Medium: fp(0.5), Low: fp(0.3)},
		{High: fp(0), Medium: fp(0), Low: fp(1)},
		{High: fp(0.33), Medium: fp(0.33), Low: fp(0.34)},
	}
	for _, probs := range cases {
		p := probs
		score, _ := Score(&models.PredictionResponse{Probabilities: &p})
		if score < 25 || score > 95 {
			t.Fatalf("score %d outside [25,95] for normalized probabilities %+v", score, probs)
		}
	}
}
