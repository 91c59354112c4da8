package schema

// =============================================================================
// JSON SCHEMA CONTRACTS
// =============================================================================
// These constants are the wire contracts enforced by the completion service's
// structured-output mode. Field names are wire-compatible with the typed
// structs in payloads.go; keep the two in sync when changing either.

// DefaultAgentSchema validates the base agent response: a conversational
// reply, a code payload, or a terminal-command proposal.
const DefaultAgentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["choice", "continue", "missingContext", "questionsForUser"],
  "additionalProperties": false,
  "properties": {
    "choice": {
      "type": "string",
      "enum": ["conversational", "code", "terminalCommand"],
      "description": "Which kind of response this is"
    },
    "response": {"type": "string", "description": "Conversational reply text"},
    "code": {"type": "string", "description": "Code payload"},
    "language": {"type": "string", "description": "Language of the code payload"},
    "codeExplanation": {"type": "string", "description": "Explanation of the code payload"},
    "terminalCommand": {"type": "string", "description": "Proposed shell command"},
    "commandReasoning": {"type": "string", "description": "Why the command is needed"},
    "requiresApproval": {"type": "boolean", "description": "Whether the command needs explicit approval"},
    "continue": {"type": "boolean", "description": "Whether the agent expects to continue working"},
    "missingContext": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Context the agent lacked"
    },
    "questionsForUser": {"type": "boolean", "description": "Whether the agent has questions"},
    "questions": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Questions for the user"
    }
  }
}`

// ScaffoldSchema validates a project scaffold descriptor.
const ScaffoldSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["projectName", "files"],
  "additionalProperties": false,
  "properties": {
    "projectName": {"type": "string"},
    "description": {"type": "string"},
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "content"],
        "additionalProperties": false,
        "properties": {
          "path": {"type": "string"},
          "content": {"type": "string"},
          "purpose": {"type": "string"}
        }
      }
    },
    "postCommands": {"type": "array", "items": {"type": "string"}}
  }
}`

// FileOpSchema validates a file CRUD descriptor with safety flags.
const FileOpSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["operation", "path"],
  "additionalProperties": false,
  "properties": {
    "operation": {"type": "string", "enum": ["create", "read", "update", "delete", "rename"]},
    "path": {"type": "string"},
    "newPath": {"type": "string"},
    "content": {"type": "string"},
    "destructive": {"type": "boolean", "description": "Operation loses data if wrong"},
    "rollbackAvailable": {"type": "boolean", "description": "A rollback plan exists"},
    "reasoning": {"type": "string"}
  }
}`

// AnalyzeSchema validates a code-quality report.
const AnalyzeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["summary", "findings"],
  "additionalProperties": false,
  "properties": {
    "summary": {"type": "string"},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "severity"],
        "additionalProperties": false,
        "properties": {
          "description": {"type": "string"},
          "severity": {"type": "string", "enum": ["info", "low", "medium", "high", "critical"]},
          "location": {"type": "string"}
        }
      }
    },
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`

// TestSchema validates a test-suite descriptor.
const TestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tests"],
  "additionalProperties": false,
  "properties": {
    "framework": {"type": "string"},
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["testName", "testDescription"],
        "additionalProperties": false,
        "properties": {
          "testName": {"type": "string"},
          "testDescription": {"type": "string"},
          "testType": {"type": "string", "enum": ["unit", "integration", "e2e", "property"]},
          "code": {"type": "string"}
        }
      }
    },
    "coverageTarget": {"type": "number"}
  }
}`

// DocsSchema validates a documentation descriptor.
const DocsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "sections"],
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string"},
    "format": {"type": "string", "enum": ["markdown", "plaintext"]},
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["heading", "body"],
        "additionalProperties": false,
        "properties": {
          "heading": {"type": "string"},
          "body": {"type": "string"}
        }
      }
    }
  }
}`

// IntentClassificationSchema validates the router's classification call.
// The recommendedAgent enum is the closed agent set plus default.
const IntentClassificationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["recommendedAgent", "reasoning", "confidence"],
  "additionalProperties": false,
  "properties": {
    "recommendedAgent": {
      "type": "string",
      "enum": ["scaffold", "fileOp", "analyze", "test", "docs", "default"]
    },
    "reasoning": {"type": "string"},
    "confidence": {"type": "string", "enum": ["high", "medium", "low"]}
  }
}`

// SummarySchema validates the memory manager's compaction call.
const SummarySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["summary"],
  "additionalProperties": false,
  "properties": {
    "summary": {"type": "string", "description": "Condensed account of the conversation window"},
    "reasoning": {"type": "string", "description": "What was kept and why"}
  }
}`

// WarRoomAnalysisSchema validates the analysis role's output.
const WarRoomAnalysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["issues"],
  "additionalProperties": false,
  "properties": {
    "qualityScore": {"type": "number", "minimum": 0, "maximum": 100},
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "severity"],
        "additionalProperties": false,
        "properties": {
          "description": {"type": "string"},
          "severity": {"type": "string", "enum": ["info", "low", "medium", "high", "critical"]}
        }
      }
    },
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`

// WarRoomTestPlanSchema validates the testing role's output.
const WarRoomTestPlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tests"],
  "additionalProperties": false,
  "properties": {
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["testName", "testDescription"],
        "additionalProperties": false,
        "properties": {
          "testName": {"type": "string"},
          "testDescription": {"type": "string"},
          "testType": {"type": "string", "enum": ["unit", "integration", "e2e", "property"]}
        }
      }
    },
    "coverageTarget": {"type": "number"}
  }
}`
