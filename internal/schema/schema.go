// Package schema defines the structured-output contracts that model
// completions must conform to. Each agent in the system has exactly one
// contract; the set of agents is closed, and the default agent is an
// explicit member of the set rather than an implicit fallback key.
package schema

// Agent identifies a structured-output contract. The set is closed:
// adding an agent means adding a constant here, a contract constant
// below, and an arm in ContractFor.
type Agent string

const (
	// AgentDefault handles conversational replies, code payloads, and
	// terminal-command proposals.
	AgentDefault Agent = "default"

	// AgentScaffold produces project scaffold descriptors.
	AgentScaffold Agent = "scaffold"

	// AgentFileOp produces file CRUD descriptors with safety flags.
	AgentFileOp Agent = "fileOp"

	// AgentAnalyze produces code-quality reports.
	AgentAnalyze Agent = "analyze"

	// AgentTest produces test-suite descriptors.
	AgentTest Agent = "test"

	// AgentDocs produces documentation descriptors.
	AgentDocs Agent = "docs"
)

// Agents lists every dispatchable agent in declaration order.
var Agents = []Agent{AgentDefault, AgentScaffold, AgentFileOp, AgentAnalyze, AgentTest, AgentDocs}

// AgentFromName resolves a name produced by the classification call to an
// Agent. Unknown names report ok=false so callers can defend with the
// default agent.
func AgentFromName(name string) (Agent, bool) {
	switch Agent(name) {
	case AgentDefault, AgentScaffold, AgentFileOp, AgentAnalyze, AgentTest, AgentDocs:
		return Agent(name), true
	default:
		return AgentDefault, false
	}
}

// Contract pairs a contract name with its raw JSON schema. The raw schema
// is what gets sent to a completion service that supports strict
// structured output.
type Contract struct {
	Name string
	Raw  string
}

// ContractFor returns the contract for an agent. The mapping is total over
// the closed agent set; anything else gets the default contract.
func ContractFor(agent Agent) Contract {
	switch agent {
	case AgentScaffold:
		return Contract{Name: "scaffold", Raw: ScaffoldSchema}
	case AgentFileOp:
		return Contract{Name: "fileOp", Raw: FileOpSchema}
	case AgentAnalyze:
		return Contract{Name: "analyze", Raw: AnalyzeSchema}
	case AgentTest:
		return Contract{Name: "test", Raw: TestSchema}
	case AgentDocs:
		return Contract{Name: "docs", Raw: DocsSchema}
	default:
		return Contract{Name: "default", Raw: DefaultAgentSchema}
	}
}

// IntentClassificationContract is the internal contract used by the router
// to pick an agent when no keyword matches.
func IntentClassificationContract() Contract {
	return Contract{Name: "intentClassification", Raw: IntentClassificationSchema}
}

// SummarizeContract is the contract used by the memory manager when
// compacting a conversation window.
func SummarizeContract() Contract {
	return Contract{Name: "memorySummary", Raw: SummarySchema}
}

// WarRoomAnalysisContract is the contract for the war room analysis role.
func WarRoomAnalysisContract() Contract {
	return Contract{Name: "warRoomAnalysis", Raw: WarRoomAnalysisSchema}
}

// WarRoomTestPlanContract is the contract for the war room testing role.
func WarRoomTestPlanContract() Contract {
	return Contract{Name: "warRoomTestPlan", Raw: WarRoomTestPlanSchema}
}
