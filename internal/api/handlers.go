// Package api exposes the document toolkit over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

const (
	pdfMIME = "application/pdf"
	zipMIME = "application/zip"

	requestIDHeader = "X-Request-ID"
)

// Config bounds what a single request may upload.
type Config struct {
	MaxUploadBytes int64
	MaxFiles       int
}

// Handler wires HTTP routes to the toolkit.
type Handler struct {
	toolkit *services.Toolkit
	config  Config
}

// NewHandler constructs a Handler instance.
func NewHandler(toolkit *services.Toolkit, config Config) *Handler {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}
	if config.MaxFiles <= 0 {
		config.MaxFiles = 20
	}
	return &Handler{toolkit: toolkit, config: config}
}

// NewRouter returns a gin engine with request IDs, logging, recovery and all
// routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(requestID(), requestLogger(), gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	api := router.Group("/api")
	api.POST("/merge", h.merge)
	api.POST("/convert/pdf-to-word", h.pdfToWord)
	api.POST("/convert/word-to-pdf", h.wordToPDF)
	api.POST("/extract", h.extract)
	api.POST("/ask", h.ask)
	api.POST("/answer", h.answer)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("requestId", id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("Request handled.",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"requestId", c.GetString("requestId"),
		)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"renderer": h.toolkit.Renderer(),
		"model":    h.toolkit.Model(),
	})
}

func (h *Handler) merge(c *gin.Context) {
	form, ok := h.parseForm(c)
	if !ok {
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "at least one file is required in field \"files\"")
		return
	}
	if len(headers) > h.config.MaxFiles {
		badRequest(c, fmt.Sprintf("at most %d files may be merged at once", h.config.MaxFiles))
		return
	}

	inputs := make([]services.Input, 0, len(headers))
	for _, fh := range headers {
		in, closeFn, ok := h.openUpload(c, fh, pdfMIME)
		if !ok {
			return
		}
		defer closeFn()
		inputs = append(inputs, in)
	}

	var out bytes.Buffer
	res, err := h.toolkit.Merge(c.Request.Context(), inputs, &out)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Page-Count", strconv.Itoa(res.PageCount))
	attachment(c, "merged.pdf", pdfMIME, out.Bytes())
}

func (h *Handler) pdfToWord(c *gin.Context) {
	in, closeFn, ok := h.singleUpload(c, pdfMIME)
	if !ok {
		return
	}
	defer closeFn()

	var out bytes.Buffer
	if _, err := h.toolkit.PDFToWord(c.Request.Context(), in, &out); err != nil {
		writeError(c, err)
		return
	}
	attachment(c, stem(in.Name)+".docx", docx.MIMEType, out.Bytes())
}

func (h *Handler) wordToPDF(c *gin.Context) {
	in, closeFn, ok := h.singleUpload(c, zipMIME)
	if !ok {
		return
	}
	defer closeFn()

	var out bytes.Buffer
	res, err := h.toolkit.WordToPDF(c.Request.Context(), in, &out)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.PageCount > 0 {
		c.Header("X-Page-Count", strconv.Itoa(res.PageCount))
	}
	attachment(c, stem(in.Name)+".pdf", pdfMIME, out.Bytes())
}

func (h *Handler) extract(c *gin.Context) {
	in, closeFn, ok := h.singleUpload(c, pdfMIME)
	if !ok {
		return
	}
	defer closeFn()

	res, err := h.toolkit.Extract(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExtractResponse{
		RequestID: c.GetString("requestId"),
		PageCount: res.PageCount,
		Text:      res.Text,
	})
}

func (h *Handler) ask(c *gin.Context) {
	in, closeFn, ok := h.singleUpload(c, pdfMIME)
	if !ok {
		return
	}
	defer closeFn()

	ans, err := h.toolkit.Ask(c.Request.Context(), in, c.PostForm("question"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerResponse(c, ans))
}

func (h *Handler) answer(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes)
	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "request body too large", Kind: "BadRequest"})
			return
		}
		badRequest(c, "invalid request body")
		return
	}
	ans, err := h.toolkit.Answer(c.Request.Context(), req.Context, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerResponse(c, ans))
}

func answerResponse(c *gin.Context, ans *qa.Answer) models.AnswerResponse {
	score := ans.Score
	return models.AnswerResponse{
		RequestID: c.GetString("requestId"),
		Answer:    ans.Text,
		Score:     &score,
		Start:     ans.Start,
		End:       ans.End,
		Model:     ans.Model,
	}
}

func (h *Handler) parseForm(c *gin.Context) (*multipart.Form, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: fmt.Sprintf("upload exceeds %d bytes", h.config.MaxUploadBytes),
				Kind:  "BadRequest",
			})
			return nil, false
		}
		badRequest(c, "expected a multipart/form-data upload")
		return nil, false
	}
	return c.Request.MultipartForm, true
}

func (h *Handler) singleUpload(c *gin.Context, want string) (services.Input, func(), bool) {
	form, ok := h.parseForm(c)
	if !ok {
		return services.Input{}, nil, false
	}
	headers := form.File["file"]
	if len(headers) != 1 {
		badRequest(c, "exactly one file is required in field \"file\"")
		return services.Input{}, nil, false
	}
	return h.openUpload(c, headers[0], want)
}

var allowedExt = map[string]string{
	pdfMIME: ".pdf",
	zipMIME: ".docx",
}

// openUpload checks an uploaded file's extension and sniffed content type
// against want and opens it.
func (h *Handler) openUpload(c *gin.Context, fh *multipart.FileHeader, want string) (services.Input, func(), bool) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != allowedExt[want] {
		unsupported(c, fmt.Sprintf("%s: expected a %s file", fh.Filename, allowedExt[want]))
		return services.Input{}, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, docerr.New(docerr.StageUpload, docerr.ErrIO, err))
		return services.Input{}, nil, false
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		writeError(c, docerr.New(docerr.StageUpload, docerr.ErrIO, err))
		return services.Input{}, nil, false
	}
	if got := http.DetectContentType(head[:n]); got != want {
		f.Close()
		unsupported(c, fmt.Sprintf("%s: content is %s, expected %s", fh.Filename, got, want))
		return services.Input{}, nil, false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		writeError(c, docerr.New(docerr.StageUpload, docerr.ErrIO, err))
		return services.Input{}, nil, false
	}
	return services.Input{Name: fh.Filename, Data: f}, func() { f.Close() }, true
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, contentType, data)
}

func stem(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if s := strings.TrimSuffix(base, filepath.Ext(base)); s != "" && s != "." {
		return s
	}
	return "document"
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msg, Kind: "BadRequest"})
}

func unsupported(c *gin.Context, msg string) {
	c.JSON(http.StatusUnsupportedMediaType, models.ErrorResponse{
		Error: msg,
		Stage: docerr.StageUpload,
		Kind:  docerr.KindName(docerr.ErrInvalidDocument),
	})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch docerr.KindOf(err) {
	case docerr.ErrInvalidDocument, docerr.ErrConversion, docerr.ErrExtraction, docerr.ErrInference:
		return http.StatusUnprocessableEntity
	case docerr.ErrEnvironment:
		return http.StatusServiceUnavailable
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), models.ErrorResponse{
		Error: err.Error(),
		Stage: docerr.StageOf(err),
		Kind:  docerr.KindName(docerr.KindOf(err)),
	})
}
