package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Data           resume.ResumeData `json:"data"`
	JobDescription string            `json:"jobDescription,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Data.FullName) == "" {
		s.writeError(w, r, core.NewInvalidRequestError("data.fullName must not be empty"))
		return
	}

	analysis, err := s.generator.EnhanceResume(r.Context(), req.Data, req.JobDescription)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type portfolioRequest struct {
	Data resume.ResumeData `json:"data"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !s.decode(w, r, &req) {
		return
	}

	portfolio, err := s.generator.GeneratePortfolioContent(r.Context(), req.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

type portfolioAssetsResponse struct {
	BrandImage     string `json:"brandImage,omitempty"`
	PitchAudioData string `json:"pitchAudioData,omitempty"`
}

// handlePortfolioAssets generates the brand artwork and the spoken elevator
// pitch concurrently. Both are decorative: individual failures degrade to an
// empty field instead of failing the request.
func (s *Server) handlePortfolioAssets(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !s.decode(w, r, &req) {
		return
	}

	var resp portfolioAssetsResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		img, err := s.generator.GenerateBrandImage(ctx, string(req.Data.TargetRole), req.Data.FullName)
		if err != nil {
			s.logger.Warn("brand image generation failed", "error", err)
			return nil
		}
		resp.BrandImage = base64.StdEncoding.EncodeToString(img)
		return nil
	})
	g.Go(func() error {
		audio, err := s.generator.GenerateElevatorPitch(ctx, req.Data.Summary)
		if err != nil {
			s.logger.Warn("elevator pitch generation failed", "error", err)
			return nil
		}
		resp.PitchAudioData = audio
		return nil
	})
	_ = g.Wait()

	writeJSON(w, http.StatusOK, resp)
}

type contactReplyRequest struct {
	CandidateName  string `json:"candidateName"`
	VisitorName    string `json:"visitorName"`
	VisitorMessage string `json:"visitorMessage"`
	ResumeSummary  string `json:"resumeSummary"`
}

func (s *Server) handleContactReply(w http.ResponseWriter, r *http.Request) {
	var req contactReplyRequest
	if !s.decode(w, r, &req) {
		return
	}

	reply := s.generator.GenerateContactReply(r.Context(),
		req.CandidateName, req.VisitorName, req.VisitorMessage, req.ResumeSummary)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if role == "" || location == "" {
		s.writeError(w, r, core.NewInvalidRequestError("role and location query parameters are required"))
		return
	}

	jobs, err := s.generator.FindLiveJobs(r.Context(), role, location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []resume.LiveJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

type saveResumeRequest struct {
	Data     resume.ResumeData  `json:"data"`
	Analysis *resume.AIAnalysis `json:"analysis,omitempty"`
}

func (s *Server) handleSaveResume(w http.ResponseWriter, r *http.Request) {
	var req saveResumeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Data.FullName) == "" {
		s.writeError(w, r, core.NewInvalidRequestError("data.fullName must not be empty"))
		return
	}

	rec, err := s.store.Save(r.Context(), req.Data, req.Analysis)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []resume.SavedResume{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode strictly parses the JSON body into dst; on failure it writes an
// invalid_request_error and reports false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, core.NewInvalidRequestError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = core.NewAPIError(err.Error())
	}

	status := http.StatusInternalServerError
	switch coreErr.Type {
	case core.ErrInvalidRequest:
		status = http.StatusBadRequest
	case core.ErrNotFound:
		status = http.StatusNotFound
	case core.ErrAPI:
		status = http.StatusBadGateway
	}

	reqID, _ := RequestIDFrom(r.Context())
	s.logger.Warn("request failed",
		"request_id", reqID,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	writeJSONError(w, status, coreErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
