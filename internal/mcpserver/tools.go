package mcpserver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// ExtractInput is the input schema for extract_text.
type ExtractInput struct {
	Path string `json:"path" jsonschema:"absolute path of the PDF to read"`
}

// AskInput is the input schema for ask_pdf.
type AskInput struct {
	Path     string `json:"path" jsonschema:"absolute path of the PDF to read"`
	Question string `json:"question" jsonschema:"the question to answer from the document text"`
}

// AnswerInput is the input schema for answer_question.
type AnswerInput struct {
	Context  string `json:"context" jsonschema:"the passage to answer from"`
	Question string `json:"question" jsonschema:"the question to answer"`
}

// MergeInput is the input schema for merge_pdfs.
type MergeInput struct {
	Paths  []string `json:"paths" jsonschema:"PDF paths in the order their pages should appear"`
	Output string   `json:"output" jsonschema:"path of the merged PDF to write"`
}

// ConvertInput is the input schema for pdf_to_word and word_to_pdf.
type ConvertInput struct {
	Path   string `json:"path" jsonschema:"absolute path of the document to convert"`
	Output string `json:"output,omitempty" jsonschema:"output path (default: beside the input with the new extension)"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_text",
		Description: "Extract the plain text of every page of a PDF, in page order",
	}, s.handleExtract)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_pdf",
		Description: "Answer a question from the text of a PDF",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_question",
		Description: "Answer a question from a passage of text",
	}, s.handleAnswer)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "merge_pdfs",
		Description: "Merge PDFs into one document, keeping the given order",
	}, s.handleMerge)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pdf_to_word",
		Description: "Convert a PDF into an editable .docx document",
	}, s.handlePDFToWord)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "word_to_pdf",
		Description: "Render a .docx document as a PDF",
	}, s.handleWordToPDF)
}

func (s *Server) handleExtract(ctx context.Context, _ *mcp.CallToolRequest, input ExtractInput) (*mcp.CallToolResult, models.ExtractResponse, error) {
	if input.Path == "" {
		return nil, models.ExtractResponse{}, errors.New("path is required")
	}
	res, err := s.toolkit.ExtractFile(ctx, input.Path)
	if err != nil {
		return nil, models.ExtractResponse{}, err
	}
	return nil, models.ExtractResponse{PageCount: res.PageCount, Text: res.Text}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, models.AnswerResponse, error) {
	if input.Path == "" {
		return nil, models.AnswerResponse{}, errors.New("path is required")
	}
	ans, err := s.toolkit.AskFile(ctx, input.Path, input.Question)
	if err != nil {
		return nil, models.AnswerResponse{}, err
	}
	return nil, answerOutput(ans), nil
}

func (s *Server) handleAnswer(ctx context.Context, _ *mcp.CallToolRequest, input AnswerInput) (*mcp.CallToolResult, models.AnswerResponse, error) {
	ans, err := s.toolkit.Answer(ctx, input.Context, input.Question)
	if err != nil {
		return nil, models.AnswerResponse{}, err
	}
	return nil, answerOutput(ans), nil
}

func (s *Server) handleMerge(ctx context.Context, _ *mcp.CallToolRequest, input MergeInput) (*mcp.CallToolResult, models.ConversionResponse, error) {
	if input.Output == "" {
		return nil, models.ConversionResponse{}, errors.New("output is required")
	}
	res, err := s.toolkit.MergeFiles(ctx, input.Paths, input.Output)
	if err != nil {
		return nil, models.ConversionResponse{}, err
	}
	return nil, models.ConversionResponse{OutputPath: res.OutputPath, PageCount: res.PageCount}, nil
}

func (s *Server) handlePDFToWord(ctx context.Context, _ *mcp.CallToolRequest, input ConvertInput) (*mcp.CallToolResult, models.ConversionResponse, error) {
	if input.Path == "" {
		return nil, models.ConversionResponse{}, errors.New("path is required")
	}
	res, err := s.toolkit.PDFToWordFile(ctx, input.Path, outputPath(input, ".docx"))
	if err != nil {
		return nil, models.ConversionResponse{}, err
	}
	return nil, conversionOutput(res), nil
}

func (s *Server) handleWordToPDF(ctx context.Context, _ *mcp.CallToolRequest, input ConvertInput) (*mcp.CallToolResult, models.ConversionResponse, error) {
	if input.Path == "" {
		return nil, models.ConversionResponse{}, errors.New("path is required")
	}
	res, err := s.toolkit.WordToPDFFile(ctx, input.Path, outputPath(input, ".pdf"))
	if err != nil {
		return nil, models.ConversionResponse{}, err
	}
	return nil, conversionOutput(res), nil
}

// outputPath returns input.Output, or the input path with ext swapped in.
func outputPath(input ConvertInput, ext string) string {
	if input.Output != "" {
		return input.Output
	}
	return strings.TrimSuffix(input.Path, filepath.Ext(input.Path)) + ext
}

func answerOutput(ans *qa.Answer) models.AnswerResponse {
	score := ans.Score
	return models.AnswerResponse{
		Answer: ans.Text,
		Score:  &score,
		Start:  ans.Start,
		End:    ans.End,
		Model:  ans.Model,
	}
}

func conversionOutput(res *services.ConversionResult) models.ConversionResponse {
	return models.ConversionResponse{
		OutputPath: res.OutputPath,
		PageCount:  res.PageCount,
		Paragraphs: res.Paragraphs,
	}
}
