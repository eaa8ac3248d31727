package sweetness

import (
	"fmt"
	"math"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
)

// Typical sweetness of a pure member of each class. The score is a
// weighted average over the class probabilities; it is deliberately
// NOT renormalized when the probabilities do not sum to 1, matching
// the behavior the product shipped with.
const (
	weightHigh   = 95
	weightMedium = 65
	weightLow    = 25
)

// Fallback scores when the classifier returns only a label.
const (
	fallbackHigh    = 85
	fallbackMedium  = 65
	fallbackLow     = 35
	fallbackUnknown = 50
)

// Method tags recorded on the assessment.
const (
	MethodProbabilities = "weighted_probabilities"
	MethodClassLookup   = "class_lookup"
)

const defaultConfidence = 0.5

// Score converts a classification into the 0-100 sweetness score.
// With probabilities present it is round(95*P(High) + 65*P(Medium) +
// 25*P(Low)), missing classes counting as 0; otherwise a fixed lookup
// on the predicted label.
func Score(pred *models.PredictionResponse) (int, string) {
	if pred.Probabilities != nil {
		p := pred.Probabilities
		score := weightHigh*value(p.High) + weightMedium*value(p.Medium) + weightLow*value(p.Low)
		return int(math.Round(score)), MethodProbabilities
	}

	if pred.Prediction == nil {
		return fallbackUnknown, MethodClassLookup
	}
	switch *pred.Prediction {
	case models.ClassHigh:
		return fallbackHigh, MethodClassLookup
	case models.ClassMedium:
		return fallbackMedium, MethodClassLookup
	case models.ClassLow:
		return fallbackLow, MethodClassLookup
	default:
		return fallbackUnknown, MethodClassLookup
	}
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// The label functions below bucket the same score on different cut
// points. The drift between the tables (80/60/40 here, 75/60/45 for
// the display tiers) is long-standing observable behavior; do not
// unify them.

func Category(score int) string {
	switch {
	case score >= 80:
		return "High Sweetness"
	case score >= 60:
		return "Medium Sweetness"
	case score >= 40:
		return "Low Sweetness"
	default:
		return "Very Low Sweetness"
	}
}

func DisplayTitle(score int) string {
	switch {
	case score >= 75:
		return "High"
	case score >= 60:
		return "Medium"
	case score >= 45:
		return "Low"
	default:
		return "Very Low"
	}
}

func ColorToken(score int) string {
	switch {
	case score >= 75:
		return "green"
	case score >= 60:
		return "blue"
	case score >= 45:
		return "amber"
	default:
		return "gray"
	}
}

func Recommendation(score int) string {
	switch {
	case score >= 75:
		return "Perfect for eating"
	case score >= 60:
		return "Great for most uses"
	case score >= 45:
		return "Best for cooking"
	default:
		return "Wait a few days"
	}
}

func Ripeness(score int) string {
	switch {
	case score >= 70:
		return "Ready"
	case score >= 50:
		return "Good"
	default:
		return "Wait"
	}
}

func EatingExperience(score int) string {
	switch {
	case score >= 70:
		return "Great"
	case score >= 50:
		return "Good"
	default:
		return "Needs improvement"
	}
}

func BestUse(score int) string {
	if score >= 60 {
		return "Eat fresh"
	}
	return "Cook with it"
}

// Transform maps a raw prediction into the outcome handed to callers.
// Pure: identical inputs always produce identical outcomes.
func Transform(pred *models.PredictionResponse, elapsed time.Duration) *models.AnalysisOutcome {
	outcome := &models.AnalysisOutcome{
		IsPineapple:         pred.IsPineapple,
		DetectionConfidence: pred.DetectionConfidence,
		ProcessingTime:      elapsed.Seconds(),
	}
	if len(pred.Detections) > 0 {
		box := pred.Detections[0].BBox
		outcome.BoundingBox = &box
	}

	if !pred.IsPineapple {
		outcome.Status = models.StatusNoPineapple
		outcome.Message = "No pineapple detected in the image. Please take a clear photo of a pineapple."
		return outcome
	}

	if pred.Prediction == nil && pred.Probabilities == nil {
		outcome.Status = models.StatusError
		outcome.Message = "Pineapple detected but the classifier returned no sweetness prediction."
		return outcome
	}

	score, method := Score(pred)
	confidence := defaultConfidence
	if pred.Confidence != nil {
		confidence = *pred.Confidence
	}

	outcome.Status = models.StatusSuccess
	outcome.Message = "Analysis complete"
	outcome.Sweetness = &models.SweetnessAssessment{
		Score:          score,
		Confidence:     confidence,
		Category:       Category(score),
		DisplayTitle:   DisplayTitle(score),
		Color:          ColorToken(score),
		Recommendation: Recommendation(score),
		Characteristics: []string{
			fmt.Sprintf("Sweetness score: %d/100", score),
			fmt.Sprintf("Confidence: %.0f%%", confidence*100),
			fmt.Sprintf("Method: %s", method),
			fmt.Sprintf("Detection confidence: %.0f%%", pred.DetectionConfidence*100),
		},
		QualityMetrics: models.QualityMetrics{
			Ripeness:         Ripeness(score),
			EatingExperience: EatingExperience(score),
			BestUse:          BestUse(score),
		},
		Method:         method,
		ProcessingTime: elapsed.Seconds(),
	}
	return outcome
}
