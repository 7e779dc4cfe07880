package model

// FormatDescriptor describes one selectable encoding reported by a probe
type FormatDescriptor struct {
	FormatID   string `json:"format_id"`
	Container  string `json:"ext"`
	Resolution string `json:"resolution"`
	SizeBytes  *int64 `json:"filesize,omitempty"` // nil when upstream does not report a size
}

// ProbeResult is the outcome of a successful probe
type ProbeResult struct {
	Title   string             `json:"title"`
	Formats []FormatDescriptor `json:"formats"`
}

// HasFormat reports whether id appeared in the probe result.
func (pr *ProbeResult) HasFormat(id string) bool {
	for _, f := range pr.Formats {
		if f.FormatID == id {
			return true
		}
	}
	return false
}
