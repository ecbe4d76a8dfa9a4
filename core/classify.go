package core

import "strings"

// Classify inspects a MetadataModel and reports what sensitive material
// it carries. Camera settings are surfaced but never contribute to
// HasSensitiveData or the risk level: exposure parameters describe the
// shot, not the person.
func Classify(m *MetadataModel) PrivacyAnalysis {
	var a PrivacyAnalysis
	if m != nil {
		if m.GPS != nil {
			a.HasGPS = true
			a.HasExactLocation = m.GPS.HasFix()
		}
		a.HasDeviceInfo = !m.Device.Empty()
		a.HasTimestamps = !m.Timestamps.Empty()
		a.HasCameraSettings = !m.Camera.Empty()
		a.HasCaption = !m.Caption.Empty()
	}

	a.HasSensitiveData = a.HasGPS || a.HasDeviceInfo || a.HasTimestamps || a.HasCaption

	switch {
	case a.HasExactLocation:
		a.Risk = RiskHigh
	case a.HasGPS || a.HasDeviceInfo:
		a.Risk = RiskMedium
	case a.HasTimestamps || a.HasCaption:
		a.Risk = RiskLow
	default:
		a.Risk = RiskNone
	}

	a.Summary = summarize(a)
	return a
}

// summarize renders the removal description shown to users. Categories
// appear in a fixed order so the wording is stable across runs.
func summarize(a PrivacyAnalysis) string {
	var cats []string
	if a.HasGPS {
		cats = append(cats, "location data")
	}
	if a.HasDeviceInfo {
		cats = append(cats, "device information")
	}
	if a.HasTimestamps {
		cats = append(cats, "timestamps")
	}
	if a.HasCaption {
		cats = append(cats, "embedded metadata")
	}
	if len(cats) == 0 {
		return "no sensitive metadata detected"
	}
	return "Removed: " + strings.Join(cats, ", ")
}

// MergeAnalyses OR-combines per-file analyses into a batch-level one.
// The merged risk is the maximum of the inputs and the summary is
// recomputed from the combined flags.
func MergeAnalyses(analyses ...PrivacyAnalysis) PrivacyAnalysis {
	var merged PrivacyAnalysis
	for _, a := range analyses {
		merged.HasGPS = merged.HasGPS || a.HasGPS
		merged.HasExactLocation = merged.HasExactLocation || a.HasExactLocation
		merged.HasDeviceInfo = merged.HasDeviceInfo || a.HasDeviceInfo
		merged.HasTimestamps = merged.HasTimestamps || a.HasTimestamps
		merged.HasCameraSettings = merged.HasCameraSettings || a.HasCameraSettings
		merged.HasCaption = merged.HasCaption || a.HasCaption
		merged.HasSensitiveData = merged.HasSensitiveData || a.HasSensitiveData
		if a.Risk > merged.Risk {
			merged.Risk = a.Risk
		}
	}
	merged.Summary = summarize(merged)
	return merged
}
