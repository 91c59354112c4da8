// Package warroom runs the two-role adversarial review used to approve or
// reject code-change proposals. The roles are model-assisted; the verdict
// is not. Approval thresholds are constants of the design, never model
// output.
package warroom

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aegis/internal/provider"
	"aegis/internal/schema"
)

// Verdict decisions.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Approval thresholds. All three must hold for approval.
const (
	// minQualityScore is the lowest passing analysis score.
	minQualityScore = 75.0

	// minTestCount is the fewest tests a passing plan may propose.
	minTestCount = 2

	// defaultQualityScore applies when the analysis role omits a score.
	// It sits below the approval threshold: an unscored proposal is not
	// safe by default.
	defaultQualityScore = 50.0
)

// DebateEntry is one role's raw structured output.
type DebateEntry struct {
	Role     string `json:"role"`
	Findings any    `json:"findings"`
}

// Verdict is the workflow's output. Computed once per invocation,
// immutable, not persisted here.
type Verdict struct {
	Verdict            string        `json:"verdict"`
	QualityScore       float64       `json:"qualityScore"`
	TestCount          int           `json:"testCount"`
	CriticalIssueCount int           `json:"criticalIssueCount"`
	DebateLog          []DebateEntry `json:"debateLog"`
	Summary            string        `json:"summary"`
}

// Approved reports whether the verdict is an approval.
func (v *Verdict) Approved() bool {
	return v.Verdict == DecisionApproved
}

// Workflow holds the two review roles' shared dependencies.
type Workflow struct {
	llm    provider.Client
	logger *zap.Logger
}

// NewWorkflow creates a war room backed by the given completion client.
func NewWorkflow(llm provider.Client, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{llm: llm, logger: logger}
}

const analysisInstruction = "You are the analysis reviewer in an adversarial code review. " +
	"Score the proposal's quality from 0 to 100, list concrete issues with severities, " +
	"and recommend improvements. Be skeptical; the burden of proof is on the proposal."

const testingInstruction = "You are the testing reviewer in an adversarial code review. " +
	"Given the proposal, the code, and the analysis reviewer's issues, design the test " +
	"suite that would prove or disprove the change's safety."

// Run executes both roles sequentially and computes the verdict. The
// testing role's prompt includes the analysis role's findings. Any model
// failure aborts the whole workflow; there is no partial verdict.
func (w *Workflow) Run(ctx context.Context, proposal, code, contextInfo string) (*Verdict, error) {
	analysis, err := w.runAnalysis(ctx, proposal, code, contextInfo)
	if err != nil {
		return nil, fmt.Errorf("war room analysis role failed: %w", err)
	}

	plan, err := w.runTesting(ctx, proposal, code, analysis)
	if err != nil {
		return nil, fmt.Errorf("war room testing role failed: %w", err)
	}

	verdict := computeVerdict(analysis, plan)
	w.logger.Info("war room verdict",
		zap.String("verdict", verdict.Verdict),
		zap.Float64("score", verdict.QualityScore),
		zap.Int("tests", verdict.TestCount),
		zap.Int("critical_issues", verdict.CriticalIssueCount))
	return verdict, nil
}

func (w *Workflow) runAnalysis(ctx context.Context, proposal, code, contextInfo string) (*schema.WarRoomAnalysis, error) {
	var sb strings.Builder
	sb.WriteString("Proposal:\n")
	sb.WriteString(proposal)
	sb.WriteString("\n\nCode:\n")
	sb.WriteString(code)

	var analysis schema.WarRoomAnalysis
	err := w.llm.CompleteStructured(ctx, provider.Request{
		System:      analysisInstruction,
		Prompt:      sb.String(),
		Context:     contextInfo,
		Temperature: 0.3,
	}, schema.WarRoomAnalysisContract(), &analysis)
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (w *Workflow) runTesting(ctx context.Context, proposal, code string, analysis *schema.WarRoomAnalysis) (*schema.WarRoomTestPlan, error) {
	var sb strings.Builder
	sb.WriteString("Proposal:\n")
	sb.WriteString(proposal)
	sb.WriteString("\n\nCode:\n")
	sb.WriteString(code)
	sb.WriteString("\n\nIssues raised by the analysis reviewer:\n")
	if len(analysis.Issues) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, issue := range analysis.Issues {
		fmt.Fprintf(&sb, "- [%s] %s\n", issue.Severity, issue.Description)
	}

	var plan schema.WarRoomTestPlan
	err := w.llm.CompleteStructured(ctx, provider.Request{
		System:      testingInstruction,
		Prompt:      sb.String(),
		Temperature: 0.3,
	}, schema.WarRoomTestPlanContract(), &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// computeVerdict applies the fixed thresholds. Deterministic: the model
// supplies findings, never the decision.
func computeVerdict(analysis *schema.WarRoomAnalysis, plan *schema.WarRoomTestPlan) *Verdict {
	score := defaultQualityScore
	if analysis.QualityScore != nil {
		score = *analysis.QualityScore
	}

	critical := 0
	for _, issue := range analysis.Issues {
		switch strings.ToLower(issue.Severity) {
		case "critical", "high":
			critical++
		}
	}

	decision := DecisionRejected
	if score >= minQualityScore && len(plan.Tests) >= minTestCount && critical == 0 {
		decision = DecisionApproved
	}

	verdict := &Verdict{
		Verdict:            decision,
		QualityScore:       score,
		TestCount:          len(plan.Tests),
		CriticalIssueCount: critical,
		DebateLog: []DebateEntry{
			{Role: "analysis", Findings: analysis},
			{Role: "testing", Findings: plan},
		},
	}
	verdict.Summary = renderSummary(verdict, analysis, plan)
	return verdict
}

// renderSummary builds the human-readable multi-line report.
func renderSummary(v *Verdict, analysis *schema.WarRoomAnalysis, plan *schema.WarRoomTestPlan) string {
	var sb strings.Builder
	sb.WriteString("War Room review\n")
	fmt.Fprintf(&sb, "  Quality score:   %.0f/100\n", v.QualityScore)
	fmt.Fprintf(&sb, "  Coverage target: %.0f%%\n", plan.CoverageTarget)
	fmt.Fprintf(&sb, "  Proposed tests:  %d\n", v.TestCount)

	if v.CriticalIssueCount > 0 {
		fmt.Fprintf(&sb, "  Critical issues: %d\n", v.CriticalIssueCount)
		for _, issue := range analysis.Issues {
			switch strings.ToLower(issue.Severity) {
			case "critical", "high":
				fmt.Fprintf(&sb, "    - [%s] %s\n", issue.Severity, issue.Description)
			}
		}
	}

	if len(analysis.Recommendations) > 0 {
		sb.WriteString("  Recommendations:\n")
		top := analysis.Recommendations
		if len(top) > 3 {
			top = top[:3]
		}
		for _, rec := range top {
			fmt.Fprintf(&sb, "    - %s\n", rec)
		}
	}

	fmt.Fprintf(&sb, "  Verdict: %s", v.Verdict)
	return sb.String()
}
