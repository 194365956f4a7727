package output

// JSONSchema describes the document written by JSONFormatter.
const JSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "partest run report",
  "type": "object",
  "required": ["runId", "summary", "filter", "tests", "durations", "duration", "time"],
  "properties": {
    "runId": {"type": "string"},
    "summary": {
      "type": "object",
      "required": ["total", "passed", "failed", "skipped", "panicked", "invalid", "success"],
      "properties": {
        "total": {"type": "integer", "minimum": 0},
        "passed": {"type": "integer", "minimum": 0},
        "failed": {"type": "integer", "minimum": 0},
        "skipped": {"type": "integer", "minimum": 0},
        "panicked": {"type": "integer", "minimum": 0},
        "invalid": {"type": "integer", "minimum": 0},
        "success": {"type": "boolean"}
      }
    },
    "filter": {
      "type": "object",
      "required": ["minLevel"],
      "properties": {
        "minLevel": {"type": "integer"},
        "pattern": {"type": "string"}
      }
    },
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "level", "state", "duration"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "level": {"type": "integer"},
          "state": {"enum": ["PASSED", "SKIPPED", "FAILED", "PANICKED", "(invalid state)"]},
          "skipReason": {"type": "string"},
          "duration": {"type": "number", "minimum": 0},
          "messages": {"type": "array", "items": {"type": "string"}},
          "panic": {"type": "string"},
          "launchError": {"type": "string"}
        },
        "additionalProperties": false
      }
    },
    "durations": {
      "type": "object",
      "required": ["p50", "p95", "p99", "max"],
      "properties": {
        "p50": {"type": "number", "minimum": 0},
        "p95": {"type": "number", "minimum": 0},
        "p99": {"type": "number", "minimum": 0},
        "max": {"type": "number", "minimum": 0}
      }
    },
    "errors": {"type": "array", "items": {"type": "string"}},
    "duration": {"type": "number", "minimum": 0},
    "time": {"type": "string"}
  }
}
`
