package models

// AnalyzeURLsRequest asks for analysis of images that are fetched by reference
// instead of uploaded as multipart files.
type AnalyzeURLsRequest struct {
	ImageURLs []string `json:"image_urls" binding:"required,min=1,dive,required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}
