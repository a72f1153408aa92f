// Package facescan reduces an ordered face-scan frame sequence to the
// session-level features the risk rules consume. The package is pure: no
// image data, no store access, just arithmetic over pre-extracted features.
package facescan

import "github.com/fleetready/backend/internal/models"

const (
	// EyeARThreshold separates closed from open eyes.
	EyeARThreshold = 0.22
	// FallbackFrameSec is the assumed spacing when frame timestamps are
	// absent or run backwards (30fps capture).
	FallbackFrameSec = 1.0 / 30.0
)

// Aggregate computes SessionFeatures from frames in order. Rate and
// stability features are means, tension features are maxima, both over only
// the frames that supply the feature. Face visibility alone defaults to 0
// for a non-empty sequence. The closure durations walk the sequence with the
// eye-aspect-ratio threshold; the run value is the run still open at the end
// of the sequence, with the max run alongside for consumers that want the
// whole-sequence view.
func Aggregate(frames []models.FrameSample) models.SessionFeatures {
	var f models.SessionFeatures
	if len(frames) == 0 {
		return f
	}

	f.EyeBlinkRate = mean(frames, func(s models.FrameSample) *float64 { return s.EyeBlinkRate })
	f.HeadStability = mean(frames, func(s models.FrameSample) *float64 { return s.HeadStability })
	f.FaceVisibility = mean(frames, func(s models.FrameSample) *float64 { return s.FaceVisibility })
	f.AvgEyeOpenDuration = mean(frames, func(s models.FrameSample) *float64 { return s.AvgEyeOpenDuration })
	f.BlinkVariance = mean(frames, func(s models.FrameSample) *float64 { return s.BlinkVariance })
	f.HeadTiltVariance = mean(frames, func(s models.FrameSample) *float64 { return s.HeadTiltVariance })

	f.BrowFurrow = maximum(frames, func(s models.FrameSample) *float64 { return s.BrowFurrow })
	f.LipTighten = maximum(frames, func(s models.FrameSample) *float64 { return s.LipTighten })
	f.MouthOpen = maximum(frames, func(s models.FrameSample) *float64 { return s.MouthOpen })

	if f.FaceVisibility == nil {
		zero := 0.0
		f.FaceVisibility = &zero
	}

	f.EyeAspectRatio = mean(frames, func(s models.FrameSample) *float64 { return s.EyeAspectRatio })
	f.EyeClosedRunSec, f.EyeClosedMaxRunSec, f.EyeClosedTotalSec = closureDurations(frames)
	return f
}

// closureDurations walks frames with a numeric eye aspect ratio. Elapsed
// time exists only between consecutive such frames: the pair's timestamp_ms
// difference when both are present and non-decreasing, the 30fps fallback
// otherwise. The first frame carries no elapsed time.
func closureDurations(frames []models.FrameSample) (run, maxRun, total float64) {
	var lastTs *float64
	first := true
	for _, frame := range frames {
		if frame.EyeAspectRatio == nil {
			continue
		}

		var delta float64
		switch {
		case first:
			delta = 0
		case frame.TimestampMs != nil && lastTs != nil && *frame.TimestampMs >= *lastTs:
			delta = (*frame.TimestampMs - *lastTs) / 1000.0
		default:
			delta = FallbackFrameSec
		}
		first = false
		if frame.TimestampMs != nil {
			lastTs = frame.TimestampMs
		}

		if *frame.EyeAspectRatio < EyeARThreshold {
			total += delta
			run += delta
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return run, maxRun, total
}

func mean(frames []models.FrameSample, pick func(models.FrameSample) *float64) *float64 {
	var (
		sum float64
		n   int
	)
	for _, frame := range frames {
		if v := pick(frame); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

func maximum(frames []models.FrameSample, pick func(models.FrameSample) *float64) *float64 {
	var best *float64
	for _, frame := range frames {
		if v := pick(frame); v != nil {
			if best == nil || *v > *best {
				val := *v
				best = &val
			}
		}
	}
	return best
}
