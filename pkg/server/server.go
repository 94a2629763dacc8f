// Package server exposes the resume features over HTTP: analysis, portfolio
// generation, job search, contact replies, and the saved-resume library.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/resumaster/resumaster/pkg/config"
	"github.com/resumaster/resumaster/pkg/resume"
	"github.com/resumaster/resumaster/pkg/store"
)

// Generator is the slice of the Gemini client the handlers use.
type Generator interface {
	EnhanceResume(ctx context.Context, data resume.ResumeData, jobDescription string) (*resume.AIAnalysis, error)
	GeneratePortfolioContent(ctx context.Context, data resume.ResumeData) (*resume.PortfolioData, error)
	GenerateBrandImage(ctx context.Context, role, name string) ([]byte, error)
	GenerateElevatorPitch(ctx context.Context, summary string) (string, error)
	FindLiveJobs(ctx context.Context, role, location string) ([]resume.LiveJob, error)
	GenerateContactReply(ctx context.Context, candidateName, visitorName, visitorMessage, resumeSummary string) string
}

// Server routes the HTTP API.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	generator Generator
	store     store.Store
}

// New builds a server over the given collaborators.
func New(cfg config.Config, generator Generator, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		generator: generator,
		store:     st,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /v1/portfolio", s.handlePortfolio)
	s.mux.HandleFunc("POST /v1/portfolio/assets", s.handlePortfolioAssets)
	s.mux.HandleFunc("POST /v1/contact-reply", s.handleContactReply)
	s.mux.HandleFunc("GET /v1/jobs", s.handleJobs)

	s.mux.HandleFunc("POST /v1/resumes", s.handleSaveResume)
	s.mux.HandleFunc("GET /v1/resumes", s.handleListResumes)
	s.mux.HandleFunc("GET /v1/resumes/{id}", s.handleGetResume)
	s.mux.HandleFunc("DELETE /v1/resumes/{id}", s.handleDeleteResume)
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = cors(s.cfg.CORSAllowedOrigins, h)
	h = recoverer(s.logger, h)
	h = accessLog(s.logger, h)
	h = requestID(h)
	return h
}
