package models

import "time"

// Job statuses.
const (
	StatusProcessing = "PROCESSING"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Operation names recorded on jobs.
const (
	OperationMerge     = "merge"
	OperationPDFToWord = "pdf-to-word"
	OperationWordToPDF = "word-to-pdf"
	OperationExtract   = "extract"
	OperationAsk       = "ask"
	OperationAnswer    = "answer"
)

// Job is the ledger record for one document operation. It tracks the status,
// the inputs by name and content hash, and what was produced.
type Job struct {
	ID           string     `firestore:"-" json:"id"`
	Operation    string     `firestore:"operation,omitempty" json:"operation"`
	FileHash     string     `firestore:"fileHash,omitempty" json:"fileHash,omitempty"` // hash of the first input, used for dedupe
	Inputs       []JobInput `firestore:"inputs,omitempty" json:"inputs,omitempty"`
	Status       string     `firestore:"status,omitempty" json:"status"`
	ErrorKind    string     `firestore:"errorKind,omitempty" json:"errorKind,omitempty"`
	ErrorDetails string     `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	OutputName   string     `firestore:"outputName,omitempty" json:"outputName,omitempty"`
	PageCount    int        `firestore:"pageCount,omitempty" json:"pageCount,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt,omitempty" json:"updatedAt"`
}

// JobInput identifies one input document.
type JobInput struct {
	Filename string `firestore:"filename" json:"filename"`
	FileHash string `firestore:"fileHash" json:"fileHash"`
	Size     int64  `firestore:"size" json:"size"`
}
