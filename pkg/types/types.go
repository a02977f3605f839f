package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether the box has no area
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Face represents a single detected face
type Face struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// AnalysisResult contains the complete analysis result from the vision model.
// Each step prompt fills the fields it needs: face detection reads Faces,
// cropping reads Person and Faces, tagging reads Tags and Rating.
type AnalysisResult struct {
	Faces       []Face   `json:"faces,omitempty"`
	Person      *Box     `json:"person,omitempty"`
	Rating      string   `json:"rating,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FaceCount returns the number of detected faces
func (r *AnalysisResult) FaceCount() int {
	return len(r.Faces)
}
