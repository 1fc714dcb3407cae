// Package server exposes the analysis pipeline over HTTP. Every error
// from the inference round-trip is converted into a JSON response;
// degraded parsing is a warning flag on a success, never a failure.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menta2k/carb-analyzer/internal/config"
	"github.com/menta2k/carb-analyzer/internal/settings"
	"github.com/menta2k/carb-analyzer/pkg/client"
	"github.com/menta2k/carb-analyzer/pkg/estimator"
	"github.com/menta2k/carb-analyzer/pkg/imageprep"
	"github.com/menta2k/carb-analyzer/pkg/ollama"
	"github.com/menta2k/carb-analyzer/pkg/openai"
	"github.com/menta2k/carb-analyzer/pkg/types"
)

// EstimatedNote is the user-visible warning attached to heuristic results.
const EstimatedNote = "Values are approximate: the analysis was recovered from unstructured model output."

// Server wires the HTTP surface to the pipeline components.
type Server struct {
	cfg      *config.Config
	prep     *imageprep.Preparer
	store    *settings.Store
	engine   *gin.Engine
	httpSrv  *http.Server
	backends func(apiKey string) (client.CompletionClient, error)
}

// AnalyzeRequest is the JSON body alternative to a multipart upload.
type AnalyzeRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// AnalyzeResponse carries one finished analysis.
type AnalyzeResponse struct {
	ID        string                `json:"id"`
	Record    types.NutritionRecord `json:"record"`
	Status    types.ParseStatus     `json:"status"`
	Estimated bool                  `json:"estimated"`
	Note      string                `json:"note,omitempty"`
}

// New creates a Server over the given components.
func New(cfg *config.Config, prep *imageprep.Preparer, store *settings.Store) *Server {
	s := &Server{
		cfg:   cfg,
		prep:  prep,
		store: store,
	}
	s.backends = s.newBackend
	s.engine = s.buildRouter()
	return s
}

// newBackend constructs the completion client the configuration selects.
// Ollama runs locally and takes no credential.
func (s *Server) newBackend(apiKey string) (client.CompletionClient, error) {
	if s.cfg.Inference.Backend == "ollama" {
		serverURL := s.cfg.Inference.BaseURL
		if serverURL == "" {
			serverURL = "http://localhost:11434"
		}
		return ollama.NewClient(serverURL)
	}
	return openai.NewClient(s.cfg.Inference.BaseURL, apiKey), nil
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/settings/key", s.handleGetKey)
		v1.PUT("/settings/key", s.handlePutKey)
		v1.DELETE("/settings/key", s.handleDeleteKey)
	}

	return r
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleAnalyze(c *gin.Context) {
	imageData, err := s.readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": err.Error()})
		return
	}

	if !imageprep.IsImageData(imageData) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "selected file is not an image"})
		return
	}

	apiKey, err := s.store.APIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
		return
	}
	if apiKey == "" && s.cfg.Inference.Backend != "ollama" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credential_missing", "detail": "no API credential stored; set one via PUT /api/v1/settings/key"})
		return
	}

	img, err := s.prep.Decode(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "image_processing_failure", "detail": err.Error()})
		return
	}

	b64, err := s.prep.PrepareBase64(img)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "image_processing_failure", "detail": err.Error()})
		return
	}

	backend, err := s.backends(apiKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
		return
	}

	est := estimator.New(backend)
	result, err := est.EstimateMeal(c.Request.Context(), s.cfg.Inference.Model, b64)
	if err != nil {
		s.writeRoundTripError(c, err)
		return
	}

	resp := AnalyzeResponse{
		ID:        uuid.NewString(),
		Record:    result.Record,
		Status:    result.Status,
		Estimated: result.Estimated(),
	}
	if resp.Estimated {
		resp.Note = EstimatedNote
	}
	c.JSON(http.StatusOK, resp)
}

// readImage accepts either a multipart "image" file or a JSON body with
// base64 content.
func (s *Server) readImage(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("image"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(req.ImageBase64)
}

// writeRoundTripError maps inference round-trip failures onto responses.
func (s *Server) writeRoundTripError(c *gin.Context, err error) {
	if errors.Is(err, client.ErrNoCredential) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credential_missing", "detail": err.Error()})
		return
	}

	var svcErr *client.ServiceError
	if errors.As(err, &svcErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "service_error",
			"upstream_status": svcErr.StatusCode,
			"detail":          svcErr.Detail,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
}

func (s *Server) handleGetKey(c *gin.Context) {
	key, err := s.store.APIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
		return
	}
	// Never echo the credential itself, only whether one is stored.
	c.JSON(http.StatusOK, gin.H{"configured": key != ""})
}

type putKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

func (s *Server) handlePutKey(c *gin.Context) {
	var req putKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": err.Error()})
		return
	}

	if err := s.store.SetAPIKey(req.Key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": true})
}

func (s *Server) handleDeleteKey(c *gin.Context) {
	if err := s.store.Delete(settings.APIKeyName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": false})
}
