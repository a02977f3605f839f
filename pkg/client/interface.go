package client

import (
	"context"

	"github.com/menta2k/dataset-prep/pkg/types"
)

// VisionClient is the narrow interface every vision-model backend implements.
// Steps that need model inference (face detection, region cropping, tagging)
// send a base64 image plus a prompt and get back a structured result.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}
