package docerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(StageExtract, ErrInvalidDocument, errors.New("missing %PDF- header"))
	assert.Equal(t, "extract: invalid document: missing %PDF- header", err.Error())

	bare := &Error{Stage: StageMerge, Kind: ErrIO}
	assert.Equal(t, "merge: i/o failure", bare.Error())
}

func TestError_IsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(StageAnswer, ErrInference, cause)

	assert.ErrorIs(t, err, ErrInference)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConversion)
}

func TestKindOf(t *testing.T) {
	inner := New(StageExtract, ErrInvalidDocument, errors.New("not a pdf"))
	outer := New(StagePDFToWord, ErrConversion, inner)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "classified", err: inner, want: ErrInvalidDocument},
		{name: "outermost wins", err: outer, want: ErrConversion},
		{name: "wrapped with fmt", err: fmt.Errorf("request: %w", outer), want: ErrConversion},
		{name: "bare sentinel", err: fmt.Errorf("x: %w", ErrEnvironment), want: ErrEnvironment},
		{name: "unclassified", err: errors.New("plain"), want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}

	assert.ErrorIs(t, outer, ErrInvalidDocument, "nested kind stays reachable")
}

func TestStageOf(t *testing.T) {
	assert.Equal(t, StageWordToPDF, StageOf(Errorf(StageWordToPDF, ErrEnvironment, "soffice not found")))
	assert.Empty(t, StageOf(errors.New("plain")))
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "InvalidDocument", KindName(ErrInvalidDocument))
	assert.Equal(t, "ConversionError", KindName(ErrConversion))
	assert.Equal(t, "ExtractionError", KindName(ErrExtraction))
	assert.Equal(t, "InferenceError", KindName(ErrInference))
	assert.Equal(t, "EnvironmentError", KindName(ErrEnvironment))
	assert.Equal(t, "IOError", KindName(ErrIO))
	assert.Equal(t, "InternalError", KindName(nil))
}
