// Package resume defines the data model shared by the analysis, portfolio,
// persistence, and interview features.
package resume

import "time"

// TargetRole is the role the candidate is applying for. Free-form values are
// allowed; the listed constants match the builder's picker.
type TargetRole string

const (
	RoleFrontendEngineer   TargetRole = "Frontend Engineer"
	RoleBackendEngineer    TargetRole = "Backend Engineer"
	RoleFullstackDeveloper TargetRole = "Fullstack Developer"
	RoleDataScientist      TargetRole = "Data Scientist"
	RoleProductManager     TargetRole = "Product Manager"
	RoleUXUIDesigner       TargetRole = "UX/UI Designer"
	RoleDevOpsEngineer     TargetRole = "DevOps Engineer"
	RoleOther              TargetRole = "Other"
)

// Education is one schooling entry.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Year   string `json:"year"`
}

// Experience is one work history entry.
type Experience struct {
	Company      string `json:"company"`
	Role         string `json:"role"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`
	Metrics      string `json:"metrics,omitempty"`
	EvidenceLink string `json:"evidenceLink,omitempty"`
}

// Project is one portfolio project entry.
type Project struct {
	Name         string `json:"name"`
	Technologies string `json:"technologies"`
	Description  string `json:"description"`
	Link         string `json:"link,omitempty"`
	Metrics      string `json:"metrics,omitempty"`
}

// ResumeData is the candidate's full resume as entered in the builder.
type ResumeData struct {
	FullName   string       `json:"fullName"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Location   string       `json:"location"`
	TargetRole TargetRole   `json:"targetRole"`
	Summary    string       `json:"summary"`
	Skills     []string     `json:"skills"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Projects   []Project    `json:"projects"`
}

// ProofQuestion asks the candidate to substantiate a claim the analysis
// found unverified.
type ProofQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Context  string `json:"context"`
}

// ChecklistItem is one prioritized improvement task.
type ChecklistItem struct {
	Task     string `json:"task"`
	Priority string `json:"priority"`
}

// JDMatch scores the resume against a specific job description.
type JDMatch struct {
	MatchScore         int      `json:"matchScore"`
	MissingKeywords    []string `json:"missingKeywords"`
	TailoringAdvice    []string `json:"tailoringAdvice"`
	CompatibilityLevel string   `json:"compatibilityLevel"`
}

// AIAnalysis is the structured output of a resume enhancement run.
type AIAnalysis struct {
	Summary                string          `json:"summary"`
	MissingSkills          []string        `json:"missingSkills"`
	OptimizedProjects      []Project       `json:"optimizedProjects"`
	OptimizedExperience    []Experience    `json:"optimizedExperience"`
	ImprovementSuggestions []string        `json:"improvementSuggestions"`
	ProofQuestions         []ProofQuestion `json:"proofQuestions"`
	ATSScore               int             `json:"atsScore"`
	TopKeywords            []string        `json:"topKeywords"`
	ActionableChecklist    []ChecklistItem `json:"actionableChecklist"`
	JDMatch                *JDMatch        `json:"jdMatch,omitempty"`
}

// TechStack groups related skills for the portfolio page.
type TechStack struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// PortfolioData is the generated portfolio copy plus optional assets.
type PortfolioData struct {
	AboutMe      string      `json:"aboutMe"`
	Tagline      string      `json:"tagline"`
	HeroText     string      `json:"heroText"`
	TechStacks   []TechStack `json:"techStacks"`
	BrandImage   []byte      `json:"brandImage,omitempty"`
	PitchAudio   string      `json:"pitchAudioData,omitempty"`
}

// SavedResume is a persisted resume with its analysis, if any.
type SavedResume struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      ResumeData  `json:"data"`
	Analysis  *AIAnalysis `json:"analysis,omitempty"`
}

// LiveJob is a job posting found through search grounding.
type LiveJob struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}
