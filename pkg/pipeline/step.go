package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

// StepID identifies one stage of the pipeline.
type StepID int

const (
	StepUnknown StepID = iota
	StepValidate
	StepFaceDetect
	StepCluster
	StepCrop
	StepTag
	StepUpscale
)

// Order is the canonical execution order. Validation runs first so model time
// is never wasted on corrupt input; face filtering shrinks the working set
// before clustering; dedup runs before cropping so duplicate crops are never
// produced; cropping runs before tagging so tags describe the crop region;
// upscaling runs last so excluded or deduplicated images are never enlarged.
var Order = []StepID{
	StepValidate,
	StepFaceDetect,
	StepCluster,
	StepCrop,
	StepTag,
	StepUpscale,
}

var stepNames = map[StepID]string{
	StepValidate:   "validate",
	StepFaceDetect: "face_detect",
	StepCluster:    "cluster",
	StepCrop:       "crop",
	StepTag:        "tag",
	StepUpscale:    "upscale",
}

var stepDescriptions = map[StepID]string{
	StepValidate:   "remove corrupt or unreadable images",
	StepFaceDetect: "detect faces and split images into training and excluded sets",
	StepCluster:    "group near-duplicate images and keep one survivor per group",
	StepCrop:       "produce head, halfbody, and person region crops",
	StepTag:        "write tag sidecar files next to each image",
	StepUpscale:    "enlarge images below the size threshold",
}

// ErrUnknownStep is returned by ParseStep for names outside the step set.
var ErrUnknownStep = errors.New("unknown pipeline step")

// String returns the wire name of the step
func (s StepID) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Description returns a human-readable description of the step
func (s StepID) Description() string {
	return stepDescriptions[s]
}

// Known reports whether s is part of the canonical step set
func (s StepID) Known() bool {
	_, ok := stepNames[s]
	return ok
}

// MarshalText implements encoding.TextMarshaler so StepID keys render as
// their wire names in JSON reports.
func (s StepID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStep maps a wire name like "face_detect" to its StepID.
func ParseStep(name string) (StepID, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for id, n := range stepNames {
		if n == name {
			return id, nil
		}
	}
	return StepUnknown, errors.Wrap(ErrUnknownStep, name)
}

// ParseSteps maps a comma-separated list of step names to StepIDs. Unknown
// names are collected and returned alongside the parsed ids so the caller can
// decide whether to warn or fail.
func ParseSteps(list string) ([]StepID, []string) {
	var ids []StepID
	var unknown []string

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := ParseStep(part)
		if err != nil {
			unknown = append(unknown, part)
			continue
		}
		ids = append(ids, id)
	}
	return ids, unknown
}
