// Package api provides the REST API server for zplanebank
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/config"
	"github.com/james-see/zplanebank/pkg/ingest"
	"github.com/james-see/zplanebank/pkg/sysex"
	"github.com/james-see/zplanebank/pkg/zplane"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title ZPlaneBank API
// @version 1.0
// @description API for encoding and decoding Z-plane filter banks and converting pole shapes between sample rates
// @host localhost:8080
// @BasePath /api/v1

// maxUpload bounds request bodies and uploaded files
const maxUpload = 32 << 20

// Server carries the settings the handlers run with
type Server struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewServer creates a server for cfg. A nil logger uses slog.Default.
func NewServer(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/info", s.info)
		v1.POST("/bank/encode", s.handleEncode)
		v1.POST("/bank/decode", s.handleDecode)
		v1.POST("/shapes/convert", s.handleConvert)
		v1.POST("/sysex/ingest", s.handleIngest)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg config.Config, logger *slog.Logger) error {
	s := NewServer(cfg, logger)
	s.logger.Info("starting api server", "port", cfg.Server.Port)
	return s.Router().Run(fmt.Sprintf(":%d", cfg.Server.Port))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "zplanebank",
	})
}

// info godoc
// @Summary Container format and mapping tables
// @Description Returns the container constants, filter modes and modulation sources
// @Tags info
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/info [get]
func (s *Server) info(c *gin.Context) {
	sources := make([]string, 0, bank.SourceMIDICC7+1)
	for src := bank.SourceLFO1; src <= bank.SourceMIDICC7; src++ {
		sources = append(sources, src.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"magic":      bank.Magic,
		"version":    bank.Version,
		"bankId":     bank.BankID,
		"presets":    bank.BankSize,
		"recordSize": bank.RecordSize,
		"modes":      []string{bank.ModeAir.String(), bank.ModeLiquid.String(), bank.ModePunch.String()},
		"sources":    sources,
		"shapes": gin.H{
			"sourceRate": s.cfg.Shapes.SourceRate,
			"destRate":   s.cfg.Shapes.DestRate,
		},
	})
}

// handleEncode godoc
// @Summary Encode presets into a bank container
// @Description Accepts a preset list (array or {"bank","presets"} document) and returns the container
// @Tags bank
// @Accept json
// @Produce application/octet-stream
// @Param name query string false "Bank name"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/bank/encode [post]
func (s *Server) handleEncode(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	presets, fileBank, err := ingest.ParsePresets(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := c.DefaultQuery("name", fileBank)
	if name == "" {
		name = s.cfg.Bank.Name
	}

	result, err := bank.Encode(presets, name, bank.WithObserver(bank.NewLogObserver(s.logger)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(result.Warnings) > 0 {
		msgs := make([]string, len(result.Warnings))
		for i, w := range result.Warnings {
			msgs[i] = w.Error()
		}
		c.Header("X-Bank-Warnings", strings.Join(msgs, "; "))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(name, ".svz")))
	c.Data(http.StatusOK, "application/octet-stream", result.Data)
}

// handleDecode godoc
// @Summary Decode a bank container
// @Description Upload a container and receive the recovered strings, coefficients, signatures and presets
// @Tags bank
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Container to decode"
// @Success 200 {object} bank.Artifacts
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/bank/decode [post]
func (s *Server) handleDecode(c *gin.Context) {
	data, _, ok := readUpload(c)
	if !ok {
		return
	}

	opts := append(s.cfg.DecodeOptions(), bank.WithObserver(bank.NewLogObserver(s.logger)))
	artifacts, err := bank.Decode(data, opts...)
	switch {
	case errors.Is(err, bank.ErrFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, bank.ErrDecompression):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	writeJSON(c, artifacts)
}

// convertResponse is the body returned by handleConvert
type convertResponse struct {
	Shapes zplane.ShapeSet `json:"shapes"`
	Report *zplane.Report  `json:"report"`
}

// handleConvert godoc
// @Summary Convert pole shapes to another sample rate
// @Description Accepts a shape set and returns it re-expressed at the target rate with a before/after report
// @Tags shapes
// @Accept json
// @Produce json
// @Param rate query int false "Target sample rate (default from config)"
// @Success 200 {object} convertResponse
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/shapes/convert [post]
func (s *Server) handleConvert(c *gin.Context) {
	rate := s.cfg.Shapes.DestRate
	if q := c.Query("rate"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be an integer"})
			return
		}
		rate = v
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	src, err := zplane.ParseShapes(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dst, err := zplane.Convert(src, rate)
	switch {
	case errors.Is(err, zplane.ErrNumericDomain):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	writeJSON(c, convertResponse{Shapes: dst, Report: zplane.Compare(src, dst)})
}

// handleIngest godoc
// @Summary Read presets from an E-MU SysEx dump
// @Description Upload a .syx preset dump and receive the preset list accepted by /bank/encode
// @Tags sysex
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "SysEx dump"
// @Success 200 {array} ingest.Preset
// @Failure 400 {object} map[string]string
// @Router /api/v1/sysex/ingest [post]
func (s *Server) handleIngest(c *gin.Context) {
	data, filename, ok := readUpload(c)
	if !ok {
		return
	}

	presets, err := sysex.ParsePresets(sysex.ParseFilename(filename).Name, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeJSON(c, presets)
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func writeJSON(c *gin.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func outputName(name, ext string) string {
	base := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	if base == "" {
		base = "bank"
	}
	return filepath.Base(base) + ext
}
