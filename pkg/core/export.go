package core

// UploadMetadata describes an exported recording file.
type UploadMetadata struct {
	MissionName string
	Aircraft    string
	Difficulty  string
	DurationSec float64
	Tag         string
}
