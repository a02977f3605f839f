package pipeline

import "os"

// NextWorkingDir decides the directory the next step should consume, given the
// step that just completed and its result. It is a pure function of its
// arguments plus one directory-existence check; it performs no other I/O.
//
// Rules:
//   - face_detect: when a filter was applied and the result names an existing
//     training directory, redirect there so only the usable subset flows on.
//   - cluster, crop, upscale: redirect to the reported output directory when
//     it exists.
//   - validate, tag, and anything else: no redirection.
func NextWorkingDir(step StepID, res StepResult, current string) string {
	switch step {
	case StepFaceDetect:
		if res.FilterApplied && res.TrainingDir != "" && dirExists(res.TrainingDir) {
			return res.TrainingDir
		}
	case StepCluster, StepCrop, StepUpscale:
		if res.OutputDir != "" && dirExists(res.OutputDir) {
			return res.OutputDir
		}
	}
	return current
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
