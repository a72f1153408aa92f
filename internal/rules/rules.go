// Package rules applies the ordered threshold rules that turn session
// features into fatigue, stress, mood, and shift-risk labels. Thresholds are
// grouped per rule so they can be tuned and tested independently of the
// evaluation logic.
package rules

import "github.com/fleetready/backend/internal/models"

type FatigueThresholds struct {
	MinSustainedClosedSec  float64
	MaxCumulativeClosedSec float64
}

type StressThresholds struct {
	BrowFurrow float64
	LipTighten float64
	MouthOpen  float64
}

type MoodThresholds struct {
	BrowFurrow    float64
	LipTighten    float64
	MouthOpen     float64
	HeadStability float64
	BlinkVariance float64
}

type RiskThresholds struct {
	FatigueScore   float64
	EyeAspectRatio float64
}

type Classifier struct {
	Fatigue FatigueThresholds
	Stress  StressThresholds
	Mood    MoodThresholds
	Risk    RiskThresholds
}

func NewClassifier() Classifier {
	return Classifier{
		Fatigue: FatigueThresholds{MinSustainedClosedSec: 1.5, MaxCumulativeClosedSec: 3.0},
		Stress:  StressThresholds{BrowFurrow: 0.35, LipTighten: 0.35, MouthOpen: 0.55},
		Mood:    MoodThresholds{BrowFurrow: 0.5, LipTighten: 0.5, MouthOpen: 0.6, HeadStability: 0.9, BlinkVariance: 0.1},
		Risk:    RiskThresholds{FatigueScore: 0.25, EyeAspectRatio: 0.22},
	}
}

// Classify runs the four rules in their fixed order. fatigueScore is the
// engine-supplied confidence input to the shift-risk rule; it is not derived
// from the frame features.
func (c Classifier) Classify(f models.SessionFeatures, fatigueScore float64) models.RiskClassification {
	fatigue := c.EvaluateFatigue(f)
	stress := c.EvaluateStress(f)
	mood := c.EvaluateMood(f)
	return models.RiskClassification{
		Fatigue:   fatigue,
		Stress:    stress,
		Mood:      mood,
		ShiftRisk: c.EvaluateShiftRisk(stress == models.Detected, mood, fatigueScore, value(f.EyeAspectRatio, 0)),
	}
}

func (c Classifier) EvaluateFatigue(f models.SessionFeatures) string {
	if f.EyeClosedRunSec >= c.Fatigue.MinSustainedClosedSec || f.EyeClosedTotalSec >= c.Fatigue.MaxCumulativeClosedSec {
		return models.Detected
	}
	return models.NotDetected
}

func (c Classifier) EvaluateStress(f models.SessionFeatures) string {
	brow := value(f.BrowFurrow, 0)
	lip := value(f.LipTighten, 0)
	mouth := value(f.MouthOpen, 0)

	if brow >= c.Stress.BrowFurrow || lip >= c.Stress.LipTighten ||
		(mouth >= c.Stress.MouthOpen && (brow >= c.Stress.BrowFurrow || lip >= c.Stress.LipTighten)) {
		return models.Detected
	}
	return models.NotDetected
}

// EvaluateMood counts tension signals first; tension dominates calmness, so
// the happy check only runs for a tension-free face.
func (c Classifier) EvaluateMood(f models.SessionFeatures) string {
	brow := value(f.BrowFurrow, 0)
	lip := value(f.LipTighten, 0)
	mouth := value(f.MouthOpen, 0)

	tension := 0
	if brow >= c.Mood.BrowFurrow {
		tension++
	}
	if lip >= c.Mood.LipTighten {
		tension++
	}
	if mouth >= c.Mood.MouthOpen && (brow >= c.Mood.BrowFurrow || lip >= c.Mood.LipTighten) {
		tension++
	}

	if tension >= 2 {
		return models.MoodAngry
	}
	if tension == 1 {
		return models.MoodSad
	}
	if value(f.HeadStability, 0) >= c.Mood.HeadStability && value(f.BlinkVariance, 1) <= c.Mood.BlinkVariance {
		return models.MoodHappy
	}
	return models.MoodNeutral
}

// EvaluateShiftRisk: HIGH and LOW are mutually exclusive by construction
// (stress is negated between them); MEDIUM is the explicit default when
// neither holds.
func (c Classifier) EvaluateShiftRisk(stressDetected bool, mood string, fatigueScore, eyeAspectRatio float64) models.ShiftRisk {
	if stressDetected && mood == models.MoodAngry && fatigueScore >= c.Risk.FatigueScore {
		return models.ShiftRisk{Level: models.RiskHigh, Action: models.ActionBreakRequired}
	}
	if !stressDetected && (mood == models.MoodHappy || mood == models.MoodNeutral) && eyeAspectRatio >= c.Risk.EyeAspectRatio {
		return models.ShiftRisk{Level: models.RiskLow, Action: models.ActionLoginAllowed}
	}
	return models.ShiftRisk{Level: models.RiskMedium, Action: models.ActionReviewRequired}
}

func value(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
