package models

import "time"

const (
	StatusGreen  = "GREEN"
	StatusYellow = "YELLOW"
	StatusRed    = "RED"
)

// Assessment document names in a check's sub-collection.
const (
	AssessmentVision     = "vision_analysis"
	AssessmentCognitive  = "cognitive_test"
	AssessmentBehavioral = "behavioral_assessment"
)

// CheckRecord is one readiness check document after timestamp resolution.
// Data keeps the raw document fields since checks are only partially typed.
type CheckRecord struct {
	ID           string         `json:"check_id"`
	RiderID      string         `json:"rider_id"`
	Status       string         `json:"status"`
	StatusReason string         `json:"status_reason"`
	ResolvedAt   time.Time      `json:"resolved_at"`
	Data         map[string]any `json:"-"`
}

type FleetReadiness struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

type FleetMetrics struct {
	TotalActiveRiders          int            `json:"total_active_riders"`
	FleetReadiness             FleetReadiness `json:"fleet_readiness"`
	ShiftReadyCount            int            `json:"shift_ready_count"`
	ShiftRiskCount             int            `json:"shift_risk_count"`
	ShiftNotReadyCount         int            `json:"shift_not_ready_count"`
	FleetOperationalPercentage int            `json:"fleet_operational_percentage"`
	FatigueDetections          int            `json:"fatigue_detections"`
	StressDetections           int            `json:"stress_detections"`
	ShiftRiskDetections        int            `json:"shift_risk_detections"`
	ChangePercentage           *int           `json:"change_percentage,omitempty"`
}

type LedgerItem struct {
	RiderID   string `json:"rider_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	CheckID   string `json:"check_id"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type LedgerPage struct {
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Items []LedgerItem `json:"items"`
}

// FrameSample is one facial-measurement observation. Every feature is
// optional; frames from the face engine populate different subsets.
type FrameSample struct {
	TimestampMs        *float64 `json:"timestamp_ms,omitempty"`
	EyeAspectRatio     *float64 `json:"eye_aspect_ratio,omitempty"`
	EyeBlinkRate       *float64 `json:"eye_blink_rate,omitempty"`
	BlinkVariance      *float64 `json:"blink_variance,omitempty"`
	AvgEyeOpenDuration *float64 `json:"avg_eye_open_duration,omitempty"`
	BrowFurrow         *float64 `json:"brow_furrow,omitempty"`
	LipTighten         *float64 `json:"lip_tighten,omitempty"`
	MouthOpen          *float64 `json:"mouth_open,omitempty"`
	HeadStability      *float64 `json:"head_stability,omitempty"`
	HeadTiltVariance   *float64 `json:"head_tilt_variance,omitempty"`
	FaceVisibility     *float64 `json:"face_visibility,omitempty"`
}

// SessionFeatures is the scalar reduction of one frame sequence. Mean/max
// aggregates stay nil when no frame supplied the feature; the closure
// durations are always present (zero for an empty sequence).
type SessionFeatures struct {
	EyeBlinkRate       *float64 `json:"eye_blink_rate,omitempty"`
	HeadStability      *float64 `json:"head_stability,omitempty"`
	FaceVisibility     *float64 `json:"face_visibility,omitempty"`
	AvgEyeOpenDuration *float64 `json:"avg_eye_open_duration,omitempty"`
	BlinkVariance      *float64 `json:"blink_variance,omitempty"`
	HeadTiltVariance   *float64 `json:"head_tilt_variance,omitempty"`
	BrowFurrow         *float64 `json:"brow_furrow,omitempty"`
	LipTighten         *float64 `json:"lip_tighten,omitempty"`
	MouthOpen          *float64 `json:"mouth_open,omitempty"`
	EyeAspectRatio     *float64 `json:"eye_aspect_ratio,omitempty"`
	EyeClosedRunSec    float64  `json:"eye_closed_run_sec"`
	EyeClosedMaxRunSec float64  `json:"eye_closed_max_run_sec"`
	EyeClosedTotalSec  float64  `json:"eye_closed_total_sec"`
}

const (
	Detected    = "detected"
	NotDetected = "not_detected"
)

const (
	MoodHappy   = "happy"
	MoodNeutral = "neutral"
	MoodSad     = "sad"
	MoodAngry   = "angry"
)

const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

const (
	ActionLoginAllowed   = "LOGIN_ALLOWED"
	ActionReviewRequired = "REVIEW_REQUIRED"
	ActionBreakRequired  = "BREAK_REQUIRED"
)

type ShiftRisk struct {
	Level  string `json:"shift_risk"`
	Action string `json:"action"`
}

type RiskClassification struct {
	Fatigue   string    `json:"fatigue"`
	Stress    string    `json:"stress"`
	Mood      string    `json:"mood"`
	ShiftRisk ShiftRisk `json:"shift_risk"`
}
