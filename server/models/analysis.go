package models

import "time"

// Sweetness class labels returned by the classifier.
const (
	ClassHigh   = "High"
	ClassMedium = "Medium"
	ClassLow    = "Low"
)

// AnalysisStatus tags the terminal state of one analysis.
type AnalysisStatus string

const (
	StatusSuccess     AnalysisStatus = "success"
	StatusNoPineapple AnalysisStatus = "no_pineapple"
	StatusError       AnalysisStatus = "error"
)

// Probabilities maps a sweetness class to its predicted probability.
// The backend does not guarantee the values sum to 1.
type Probabilities struct {
	High   *float64 `json:"High,omitempty"`
	Medium *float64 `json:"Medium,omitempty"`
	Low    *float64 `json:"Low,omitempty"`
}

// BBox is the detector bounding box as [x1, y1, x2, y2].
type BBox [4]float64

type Detection struct {
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
	ClassID    int     `json:"class_id"`
}

// PredictionResponse is the wire format of POST /predict on the
// inference service. Built once per HTTP response and handed straight
// to the sweetness transformer.
type PredictionResponse struct {
	IsPineapple         bool           `json:"is_pineapple"`
	DetectionConfidence float64        `json:"detection_confidence"`
	Detections          []Detection    `json:"detections"`
	Prediction          *string        `json:"prediction"`
	Confidence          *float64       `json:"confidence"`
	Probabilities       *Probabilities `json:"probabilities"`
}

// HealthResponse is the wire format of GET /health on the inference service.
type HealthResponse struct {
	Status     string   `json:"status"`
	Mode       string   `json:"mode"`
	Detector   string   `json:"detector"`
	Classifier string   `json:"classifier"`
	Classes    []string `json:"classes"`
}

// QualityMetrics are the coarse eating-quality labels derived from the score.
type QualityMetrics struct {
	Ripeness         string `json:"ripeness"`
	EatingExperience string `json:"eating_experience"`
	BestUse          string `json:"best_use"`
}

// SweetnessAssessment is the full presentation-ready sweetness result.
// Immutable once constructed.
type SweetnessAssessment struct {
	Score           int            `json:"score"`
	Confidence      float64        `json:"confidence"`
	Category        string         `json:"category"`
	DisplayTitle    string         `json:"display_title"`
	Color           string         `json:"color"`
	Recommendation  string         `json:"recommendation"`
	Characteristics []string       `json:"characteristics"`
	QualityMetrics  QualityMetrics `json:"quality_metrics"`
	Method          string         `json:"method"`
	ProcessingTime  float64        `json:"processing_time"`
}

// AnalysisOutcome is the unit returned to callers. Status "success"
// implies Sweetness is non-nil; any other status implies it is nil.
type AnalysisOutcome struct {
	Status              AnalysisStatus       `json:"status"`
	IsPineapple         bool                 `json:"is_pineapple"`
	DetectionConfidence float64              `json:"detection_confidence"`
	BoundingBox         *BBox                `json:"bounding_box,omitempty"`
	Sweetness           *SweetnessAssessment `json:"sweetness,omitempty"`
	Source              string               `json:"source,omitempty"`
	Message             string               `json:"message"`
	ProcessingTime      float64              `json:"processing_time"`
}

// AnalysisRequest carries one image through the pipeline.
type AnalysisRequest struct {
	ImageData []byte `json:"image_data"`
	Filename  string `json:"filename"`
	ClientID  string `json:"client_id"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryRecord is one persisted analysis.
type HistoryRecord struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	ClientID       string         `json:"client_id" gorm:"index"`
	Status         AnalysisStatus `json:"status"`
	IsPineapple    bool           `json:"is_pineapple"`
	Score          int            `json:"score"`
	Category       string         `json:"category"`
	Confidence     float64        `json:"confidence"`
	Message        string         `json:"message"`
	ProcessingTime float64        `json:"processing_time"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index"`
}
