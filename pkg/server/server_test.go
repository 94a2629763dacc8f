package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/resumaster/resumaster/pkg/config"
	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
	"github.com/resumaster/resumaster/pkg/store"
)

type fakeGenerator struct {
	analysis    *resume.AIAnalysis
	analysisErr error
	portfolio   *resume.PortfolioData
	image       []byte
	imageErr    error
	pitch       string
	pitchErr    error
	jobs        []resume.LiveJob
	reply       string
}

func (g *fakeGenerator) EnhanceResume(ctx context.Context, data resume.ResumeData, jobDescription string) (*resume.AIAnalysis, error) {
	return g.analysis, g.analysisErr
}

func (g *fakeGenerator) GeneratePortfolioContent(ctx context.Context, data resume.ResumeData) (*resume.PortfolioData, error) {
	return g.portfolio, nil
}

func (g *fakeGenerator) GenerateBrandImage(ctx context.Context, role, name string) ([]byte, error) {
	return g.image, g.imageErr
}

func (g *fakeGenerator) GenerateElevatorPitch(ctx context.Context, summary string) (string, error) {
	return g.pitch, g.pitchErr
}

func (g *fakeGenerator) FindLiveJobs(ctx context.Context, role, location string) ([]resume.LiveJob, error) {
	return g.jobs, nil
}

func (g *fakeGenerator) GenerateContactReply(ctx context.Context, candidateName, visitorName, visitorMessage, resumeSummary string) string {
	return g.reply
}

func newTestServer(t *testing.T, gen *fakeGenerator) (*httptest.Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := config.Config{
		CORSAllowedOrigins: map[string]struct{}{"https://app.example": {}},
	}
	srv := httptest.NewServer(New(cfg, gen, st, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeGenerator{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{analysis: &resume.AIAnalysis{ATSScore: 88, Summary: "solid"}}
	srv, _ := newTestServer(t, gen)

	resp := postJSON(t, srv.URL+"/v1/analyze", analyzeRequest{
		Data:           resume.ResumeData{FullName: "Ada"},
		JobDescription: "Go engineer",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[resume.AIAnalysis](t, resp)
	if got.ATSScore != 88 {
		t.Fatalf("analysis = %+v", got)
	}
}

func TestAnalyze_ValidationAndUpstreamErrors(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{analysisErr: core.NewAPIError("model overloaded")}
	srv, _ := newTestServer(t, gen)

	resp := postJSON(t, srv.URL+"/v1/analyze", analyzeRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/v1/analyze", analyzeRequest{Data: resume.ResumeData{FullName: "Ada"}})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("upstream failure status = %d, want 502", resp.StatusCode)
	}
	body := decodeBody[errorEnvelope](t, resp)
	if body.Error == nil || body.Error.Type != core.ErrAPI {
		t.Fatalf("error envelope = %+v", body)
	}
}

func TestAnalyze_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeGenerator{})
	resp, err := http.Post(srv.URL+"/v1/analyze", "application/json",
		strings.NewReader(`{"data":{"fullName":"Ada"},"surprise":true}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPortfolioAssets_DegradesOnFailure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{
		imageErr: errors.New("image model down"),
		pitch:    "UENNLWJhc2U2NA==",
	}
	srv, _ := newTestServer(t, gen)

	resp := postJSON(t, srv.URL+"/v1/portfolio/assets", portfolioRequest{
		Data: resume.ResumeData{FullName: "Ada", Summary: "Engineer"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[portfolioAssetsResponse](t, resp)
	if got.BrandImage != "" {
		t.Fatalf("brand image should be empty on failure, got %q", got.BrandImage)
	}
	if got.PitchAudioData != "UENNLWJhc2U2NA==" {
		t.Fatalf("pitch = %q", got.PitchAudioData)
	}
}

func TestContactReply(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "Happy to chat!"}
	srv, _ := newTestServer(t, gen)

	resp := postJSON(t, srv.URL+"/v1/contact-reply", contactReplyRequest{
		CandidateName: "Ada", VisitorName: "Sam", VisitorMessage: "Hi",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["reply"] != "Happy to chat!" {
		t.Fatalf("body = %v", body)
	}
}

func TestJobs(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{jobs: []resume.LiveJob{{Title: "Opening", Location: "Berlin"}}}
	srv, _ := newTestServer(t, gen)

	resp, err := http.Get(srv.URL + "/v1/jobs?role=Backend+Engineer&location=Berlin")
	if err != nil {
		t.Fatalf("GET /v1/jobs: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	jobs := decodeBody[[]resume.LiveJob](t, resp)
	if len(jobs) != 1 || jobs[0].Title != "Opening" {
		t.Fatalf("jobs = %v", jobs)
	}

	resp, err = http.Get(srv.URL + "/v1/jobs?role=Backend+Engineer")
	if err != nil {
		t.Fatalf("GET /v1/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing location status = %d, want 400", resp.StatusCode)
	}
}

func TestResumeLibraryCRUD(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/v1/resumes", saveResumeRequest{
		Data:     resume.ResumeData{FullName: "Ada"},
		Analysis: &resume.AIAnalysis{ATSScore: 90},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	saved := decodeBody[resume.SavedResume](t, resp)
	if saved.ID == "" {
		t.Fatalf("saved resume missing id")
	}

	resp, err := http.Get(srv.URL + "/v1/resumes")
	if err != nil {
		t.Fatalf("GET /v1/resumes: %v", err)
	}
	all := decodeBody[[]resume.SavedResume](t, resp)
	if len(all) != 1 || all[0].ID != saved.ID {
		t.Fatalf("list = %+v", all)
	}

	resp, err = http.Get(srv.URL + "/v1/resumes/" + saved.ID)
	if err != nil {
		t.Fatalf("GET /v1/resumes/{id}: %v", err)
	}
	got := decodeBody[resume.SavedResume](t, resp)
	if got.Data.FullName != "Ada" || got.Analysis == nil || got.Analysis.ATSScore != 90 {
		t.Fatalf("record = %+v", got)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/resumes/"+saved.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/resumes/" + saved.ID)
	if err != nil {
		t.Fatalf("GET after delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeGenerator{})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/analyze", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("allowed origin status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/v1/analyze", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("denied origin status = %d, want 403", resp.StatusCode)
	}
}
