package models

// These structs define the JSON payloads shared by the HTTP API, the MCP
// tools and the CLI's JSON output.

// ExtractResponse is the output of a text extraction.
type ExtractResponse struct {
	RequestID string `json:"requestId,omitempty"`
	PageCount int    `json:"pageCount"`
	Text      string `json:"text"`
}

// AnswerRequest is the input of the raw-text question endpoint.
type AnswerRequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

// AnswerResponse is the output of a question answered over text or a PDF.
type AnswerResponse struct {
	RequestID string   `json:"requestId,omitempty"`
	Answer    string   `json:"answer"`
	Score     *float64 `json:"score,omitempty"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Model     string   `json:"model"`
}

// ConversionResponse describes a file written by merge or conversion when
// the caller asked for a path rather than the bytes.
type ConversionResponse struct {
	RequestID  string `json:"requestId,omitempty"`
	OutputPath string `json:"outputPath"`
	PageCount  int    `json:"pageCount,omitempty"`
	Paragraphs int    `json:"paragraphs,omitempty"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind"`
}

// UploadEvent is the subset of a storage object-finalize event the
// extract-on-upload function reads.
type UploadEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
