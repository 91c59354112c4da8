package schema

// Typed views of the contracts in contracts.go. The JSON tags are the wire
// contract; changing them breaks compatibility with the schemas.

// AgentResponse is the default agent's payload: exactly one of a
// conversational reply, a code payload, or a terminal-command proposal,
// selected by Choice.
type AgentResponse struct {
	Choice           string   `json:"choice"`
	Response         string   `json:"response,omitempty"`
	Code             string   `json:"code,omitempty"`
	Language         string   `json:"language,omitempty"`
	CodeExplanation  string   `json:"codeExplanation,omitempty"`
	TerminalCommand  string   `json:"terminalCommand,omitempty"`
	CommandReasoning string   `json:"commandReasoning,omitempty"`
	RequiresApproval bool     `json:"requiresApproval,omitempty"`
	Continue         bool     `json:"continue"`
	MissingContext   []string `json:"missingContext"`
	QuestionsForUser bool     `json:"questionsForUser"`
	Questions        []string `json:"questions,omitempty"`
}

// Choice values for AgentResponse.
const (
	ChoiceConversational  = "conversational"
	ChoiceCode            = "code"
	ChoiceTerminalCommand = "terminalCommand"
)

// IntentClassification is the router's classification payload.
type IntentClassification struct {
	RecommendedAgent string `json:"recommendedAgent"`
	Reasoning        string `json:"reasoning"`
	Confidence       string `json:"confidence"`
}

// SummaryPayload is the memory compaction payload.
type SummaryPayload struct {
	Summary   string `json:"summary"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ScaffoldPlan is a project scaffold descriptor.
type ScaffoldPlan struct {
	ProjectName  string         `json:"projectName"`
	Description  string         `json:"description,omitempty"`
	Files        []ScaffoldFile `json:"files"`
	PostCommands []string       `json:"postCommands,omitempty"`
}

// ScaffoldFile is one file within a scaffold plan.
type ScaffoldFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Purpose string `json:"purpose,omitempty"`
}

// FileOperation is a file CRUD descriptor with safety flags.
type FileOperation struct {
	Operation         string `json:"operation"`
	Path              string `json:"path"`
	NewPath           string `json:"newPath,omitempty"`
	Content           string `json:"content,omitempty"`
	Destructive       bool   `json:"destructive,omitempty"`
	RollbackAvailable bool   `json:"rollbackAvailable,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// QualityReport is a code-quality report.
type QualityReport struct {
	Summary         string           `json:"summary"`
	Findings        []QualityFinding `json:"findings"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// QualityFinding is one finding within a quality report.
type QualityFinding struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Location    string `json:"location,omitempty"`
}

// TestSuite is a test-suite descriptor.
type TestSuite struct {
	Framework      string     `json:"framework,omitempty"`
	Tests          []TestCase `json:"tests"`
	CoverageTarget float64    `json:"coverageTarget,omitempty"`
}

// TestCase is one test within a test suite or a war room test plan.
type TestCase struct {
	TestName        string `json:"testName"`
	TestDescription string `json:"testDescription"`
	TestType        string `json:"testType,omitempty"`
	Code            string `json:"code,omitempty"`
}

// DocPlan is a documentation descriptor.
type DocPlan struct {
	Title    string       `json:"title"`
	Format   string       `json:"format,omitempty"`
	Sections []DocSection `json:"sections"`
}

// DocSection is one section within a documentation plan.
type DocSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// WarRoomAnalysis is the analysis role's payload. QualityScore is a
// pointer so an omitted score is distinguishable from an explicit zero.
type WarRoomAnalysis struct {
	QualityScore    *float64       `json:"qualityScore,omitempty"`
	Issues          []WarRoomIssue `json:"issues"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// WarRoomIssue is one issue raised by the analysis role.
type WarRoomIssue struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// WarRoomTestPlan is the testing role's payload.
type WarRoomTestPlan struct {
	Tests          []TestCase `json:"tests"`
	CoverageTarget float64    `json:"coverageTarget,omitempty"`
}
