package tools

// User-facing replies for turns that could not be completed.
const (
	ResearchFallback = "I could not find sufficient information on this topic at this time."
	ImageFallback    = "I could not generate an image based on this request."
)
