package formats

import (
	"encoding/json"

	"classvis/internal/engine/element"
	"classvis/internal/engine/visibility"
	"classvis/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDViolation       = "CLSV001"
	ruleIDUnusedException = "CLSV002"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool         `json:"tool"`
	Results    []sarifResult     `json:"results"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

// GenerateSARIF builds a SARIF v2.1.0 document. Class files carry no source
// positions, so results point at logical locations (type or member).
func GenerateSARIF(data ReportData) ([]byte, error) {
	results := make([]sarifResult, 0, len(data.Findings))
	for _, f := range data.Findings {
		result := sarifResult{
			Message: sarifMessage{Text: f.Message},
			Properties: map[string]string{
				"check":      f.Check,
				"annotation": f.Annotation,
			},
		}
		switch f.Kind {
		case visibility.FindingUnusedException:
			result.RuleID = ruleIDUnusedException
			result.Level = "warning"
			result.Locations = []sarifLocation{{LogicalLocations: []sarifLogicalLocation{{
				Name:               element.SimpleName(f.Class),
				FullyQualifiedName: f.Class,
				Kind:               "type",
			}}}}
		default:
			result.RuleID = ruleIDViolation
			result.Level = "error"
			result.Properties["target"] = f.Target
			result.Properties["targetKind"] = f.TargetKind
			result.Locations = []sarifLocation{{LogicalLocations: []sarifLogicalLocation{{
				Name:               f.Member,
				FullyQualifiedName: f.Class + "." + f.Member,
				Kind:               "member",
			}}}}
		}
		results = append(results, result)
	}

	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:    "classvis",
				Version: version.Version,
				Rules:   buildSARIFRules(data),
			},
		},
		Results: results,
	}
	if data.RunID != "" {
		run.Properties = map[string]string{"runId": data.RunID}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	}
	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(data ReportData) []sarifRule {
	rules := make([]sarifRule, 0, 2)
	if data.count(visibility.FindingViolation) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDViolation,
			Name:             "VisibilityViolation",
			ShortDescription: sarifMessage{Text: "An annotated element was used outside its permitted visibility."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if data.count(visibility.FindingUnusedException) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnusedException,
			Name:             "UnusedException",
			ShortDescription: sarifMessage{Text: "A class listed as an exception never used an annotated element."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}
