package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pdftoolkit/internal/qa"
)

// VertexModelName identifies the hosted QA model in answers.
const VertexModelName = "vertex"

// --- Question Answering Model Prompts ---
const QASystemPrompt = "You are a reading-comprehension engine. You answer questions strictly from the passage you are given and never from outside knowledge. You must output your response as a single valid JSON object."
const QAUserPrompt = `Answer the question using only the passage below.

Follow these rules precisely:
1.  Quote the shortest span of the passage that fully answers the question. Copy it exactly, without rephrasing.
2.  If the passage does not contain the answer, set "found" to false and "answer" to an empty string.
3.  Output a JSON object with exactly three keys:
    - "answer": the quoted span.
    - "found": true or false.
    - "confidence": a number between 0 and 1.

Passage:
%s

Question:
%s`

// generator is the part of *genai.GenerativeModel the QA model calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexModel answers questions with a Gemini model on Vertex AI.
type VertexModel struct {
	model      generator
	baseClient *genai.Client
}

// NewVertexModel creates a QA model for the given project and region.
func NewVertexModel(ctx context.Context, projectID, region, modelName string) (*VertexModel, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexModel: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(QASystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		// Zero temperature so the same question gets the same answer.
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexModel{model: model, baseClient: baseClient}, nil
}

// Name implements qa.Model.
func (m *VertexModel) Name() string { return VertexModelName }

type vertexAnswer struct {
	Answer     string  `json:"answer"`
	Found      bool    `json:"found"`
	Confidence float64 `json:"confidence"`
}

// Answer implements qa.Model.
func (m *VertexModel) Answer(ctx context.Context, passage, question string) (*qa.Answer, error) {
	prompt := fmt.Sprintf(QAUserPrompt, passage, question)
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, fmt.Errorf("vertex returned an empty response")
	}

	var out vertexAnswer
	if err := json.Unmarshal([]byte(jsonString), &out); err != nil {
		slog.Error("Failed to unmarshal JSON response from Gemini", "error", err, "responseBody", jsonString)
		return nil, fmt.Errorf("failed to parse JSON from model: %w", err)
	}
	out.Answer = strings.TrimSpace(out.Answer)
	if !out.Found || out.Answer == "" {
		return nil, qa.ErrNoAnswer
	}

	ans := &qa.Answer{Text: out.Answer, Score: out.Confidence, Start: -1, End: -1, Model: VertexModelName}
	if i := strings.Index(passage, out.Answer); i >= 0 {
		ans.Start = utf8.RuneCountInString(passage[:i])
		ans.End = ans.Start + utf8.RuneCountInString(out.Answer)
	}
	return ans, nil
}

// Close releases the underlying client.
func (m *VertexModel) Close() error {
	if m.baseClient != nil {
		return m.baseClient.Close()
	}
	return nil
}

// extractJSONContent gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	// The model is configured to return JSON, so we expect a single text part.
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		// Clean potential markdown fences just in case
		cleanJSON := strings.TrimSpace(string(txt))
		cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
		cleanJSON = strings.TrimSuffix(cleanJSON, "```")
		return strings.TrimSpace(cleanJSON)
	}
	return ""
}
