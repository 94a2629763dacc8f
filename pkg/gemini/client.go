// Package gemini wraps the one-shot Gemini generation calls the resume
// features depend on: analysis, portfolio copy, brand imagery, elevator
// pitch speech, and job search grounding.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
)

const (
	// AnalysisModel handles structured text generation and search grounding.
	AnalysisModel = "gemini-3-flash-preview"
	// ImageModel renders the portfolio brand artwork.
	ImageModel = "gemini-2.5-flash-image"
	// TTSModel speaks the elevator pitch.
	TTSModel = "gemini-2.5-flash-preview-tts"

	// PitchVoice is the prebuilt voice used for the elevator pitch.
	PitchVoice = "Kore"

	maxLiveJobs = 5
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client issues one-shot generation requests.
type Client struct {
	generate generateFunc
	logger   *slog.Logger
}

// NewClient connects to the Gemini API with the given key.
func NewClient(ctx context.Context, apiKey string, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, core.NewInvalidRequestError("gemini API key must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		generate: client.Models.GenerateContent,
		logger:   logger,
	}, nil
}

// EnhanceResume rewrites and scores the resume, optionally tailored to a job
// description. The model is forced onto a JSON schema so the result decodes
// directly into AIAnalysis.
func (c *Client) EnhanceResume(ctx context.Context, data resume.ResumeData, jobDescription string) (*resume.AIAnalysis, error) {
	resumeJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode resume: %w", err)
	}

	tailoring := "Optimize for high impact and ATS compatibility."
	if strings.TrimSpace(jobDescription) != "" {
		tailoring = "Tailor it specifically to this Job Description: " + jobDescription
	}
	prompt := fmt.Sprintf("Rewrite and optimize this resume for a %s.\nResume Data: %s\n%s",
		data.TargetRole, resumeJSON, tailoring)

	resp, err := c.generate(ctx, AnalysisModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			"You are an Elite Career Strategist. Return ONLY a JSON object. Be concise but impactful. Use the STAR method for bullet points.",
			genai.RoleUser),
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("enhance resume: %w", err)
	}

	var analysis resume.AIAnalysis
	if err := json.Unmarshal([]byte(resp.Text()), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &analysis, nil
}

// GeneratePortfolioContent produces the portfolio copy for a resume.
func (c *Client) GeneratePortfolioContent(ctx context.Context, data resume.ResumeData) (*resume.PortfolioData, error) {
	prompt := fmt.Sprintf("Create high-impact cinematic portfolio text for %s, a %s. Based on: %s",
		data.FullName, data.TargetRole, data.Summary)

	resp, err := c.generate(ctx, AnalysisModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   portfolioSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate portfolio content: %w", err)
	}

	var portfolio resume.PortfolioData
	if err := json.Unmarshal([]byte(resp.Text()), &portfolio); err != nil {
		return nil, fmt.Errorf("decode portfolio content: %w", err)
	}
	return &portfolio, nil
}

// GenerateBrandImage renders 16:9 brand artwork for the portfolio hero.
// Failure is soft: the portfolio works without artwork, so errors return nil
// bytes alongside the error for the caller to log and ignore.
func (c *Client) GenerateBrandImage(ctx context.Context, role, name string) ([]byte, error) {
	prompt := fmt.Sprintf("A ultra-premium cinematic abstract 3D artwork for a %s portfolio named %s. High-end minimal luxury aesthetic, deep indigo, charcoal, and brushed silver palette. 8k resolution, ray-traced lighting.",
		role, name)

	resp, err := c.generate(ctx, ImageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: "16:9"},
	})
	if err != nil {
		return nil, fmt.Errorf("generate brand image: %w", err)
	}
	for _, part := range firstCandidateParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, core.NewAPIError("image response carried no inline data")
}

// GenerateElevatorPitch speaks the summary with the portfolio voice and
// returns base64 PCM audio at 24000 Hz mono, ready for the playback
// scheduler.
func (c *Client) GenerateElevatorPitch(ctx context.Context, summary string) (string, error) {
	prompt := "Say with extreme professional confidence: " + summary

	resp, err := c.generate(ctx, TTSModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: PitchVoice},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate elevator pitch: %w", err)
	}
	for _, part := range firstCandidateParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}
	return "", core.NewAPIError("speech response carried no audio")
}

// FindLiveJobs searches for recent openings via Google Search grounding and
// maps the grounding chunks to job links, capped at five.
func (c *Client) FindLiveJobs(ctx context.Context, role, location string) ([]resume.LiveJob, error) {
	prompt := fmt.Sprintf("Search for 5 high-paying %s jobs in %s posted in the last 7 days.", role, location)

	resp, err := c.generate(ctx, AnalysisModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("find live jobs: %w", err)
	}

	var jobs []resume.LiveJob
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return jobs, nil
	}
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Recent Opening"
		}
		url := chunk.Web.URI
		if url == "" {
			url = "#"
		}
		jobs = append(jobs, resume.LiveJob{
			Title:    title,
			Company:  "Found via Google Search",
			Location: location,
			URL:      url,
		})
		if len(jobs) == maxLiveJobs {
			break
		}
	}
	return jobs, nil
}

// GenerateContactReply drafts an in-persona reply to a portfolio visitor.
// Never fails: on any error it falls back to a stock acknowledgement, since
// the contact form must always answer something.
func (c *Client) GenerateContactReply(ctx context.Context, candidateName, visitorName, visitorMessage, resumeSummary string) string {
	const fallback = "Thanks for your message! I'll get back to you shortly."

	persona := fmt.Sprintf("You are %s. Reply as yourself. Keep it under 2 sentences. Professional and warm. Resume context: %s",
		candidateName, resumeSummary)
	prompt := fmt.Sprintf("Visitor: %s\nMessage: %s", visitorName, visitorMessage)

	resp, err := c.generate(ctx, AnalysisModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(persona, genai.RoleUser),
	})
	if err != nil {
		c.logger.Warn("contact reply generation failed", "error", err)
		return fallback
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "Thanks for reaching out!"
	}
	return reply
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func analysisSchema() *genai.Schema {
	stringArray := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":       {Type: genai.TypeString},
			"atsScore":      {Type: genai.TypeInteger},
			"topKeywords":   stringArray(),
			"missingSkills": stringArray(),
			"optimizedProjects": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":         {Type: genai.TypeString},
						"technologies": {Type: genai.TypeString},
						"description":  {Type: genai.TypeString},
						"metrics":      {Type: genai.TypeString},
					},
				},
			},
			"optimizedExperience": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"company":     {Type: genai.TypeString},
						"role":        {Type: genai.TypeString},
						"duration":    {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"metrics":     {Type: genai.TypeString},
					},
				},
			},
			"improvementSuggestions": stringArray(),
			"actionableChecklist": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task":     {Type: genai.TypeString},
						"priority": {Type: genai.TypeString},
					},
				},
			},
			"proofQuestions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       {Type: genai.TypeString},
						"question": {Type: genai.TypeString},
						"context":  {Type: genai.TypeString},
					},
				},
			},
			"jdMatch": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"matchScore":         {Type: genai.TypeInteger},
					"missingKeywords":    stringArray(),
					"tailoringAdvice":    stringArray(),
					"compatibilityLevel": {Type: genai.TypeString},
				},
			},
		},
		Required: []string{
			"summary", "atsScore", "topKeywords", "missingSkills",
			"optimizedProjects", "optimizedExperience", "actionableChecklist", "proofQuestions",
		},
	}
}

func portfolioSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tagline":  {Type: genai.TypeString},
			"heroText": {Type: genai.TypeString},
			"aboutMe":  {Type: genai.TypeString},
			"techStacks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": {Type: genai.TypeString},
						"skills":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
				},
			},
		},
		Required: []string{"tagline", "heroText", "aboutMe", "techStacks"},
	}
}
