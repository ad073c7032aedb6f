package report

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"

	"github.com/nao1215/htmlcs/internal/model"
)

// SARIF constants.
const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	toolName     = "htmlcs"
	toolURI      = "https://github.com/nao1215/htmlcs"
)

// SARIFWriter outputs a run as a SARIF 2.1.0 log so CI systems can show
// accessibility messages as code scanning alerts.
type SARIFWriter struct {
	baseWriter
	version string
}

// NewSARIFWriter creates a SARIFWriter that outputs to the given writer.
func NewSARIFWriter(output io.Writer, version string) *SARIFWriter {
	return &SARIFWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	Snippet sarifMessage `json:"snippet"`
}

// SARIFLevel maps a message type to a SARIF result level.
func SARIFLevel(t model.MessageType) string {
	switch t {
	case model.MessageError:
		return "error"
	case model.MessageWarning:
		return "warning"
	default:
		return "note"
	}
}

// Write outputs the run as SARIF.
func (w *SARIFWriter) Write(files []*model.File) (int, error) {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           toolName,
			Version:        w.version,
			InformationURI: toolURI,
			Rules:          []sarifRule{},
		}},
		Results: []sarifResult{},
	}
	invocation := sarifInvocation{ExecutionSuccessful: true}
	seen := make(map[string]bool)

	for _, f := range files {
		location := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: f.Path},
		}}

		report := f.Report()
		if report == nil || report.Error != nil {
			text := "file could not be sniffed"
			if report != nil {
				text = report.Error.Msg
			} else if f.Error != nil {
				text = f.Error.Error()
			}
			invocation.ExecutionSuccessful = false
			invocation.ToolExecutionNotifications = append(invocation.ToolExecutionNotifications, sarifNotification{
				Level:     "error",
				Message:   sarifMessage{Text: text},
				Locations: []sarifLocation{location},
			})
			continue
		}

		for _, m := range report.Messages {
			if !seen[m.Code] {
				seen[m.Code] = true
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               m.Code,
					ShortDescription: sarifMessage{Text: m.ShortCode()},
				})
			}
			loc := location
			if m.OuterHTML != "" {
				loc.PhysicalLocation.Region = &sarifRegion{Snippet: sarifMessage{Text: m.OuterHTML}}
			}
			run.Results = append(run.Results, sarifResult{
				RuleID:    m.Code,
				Level:     SARIFLevel(m.Type),
				Message:   sarifMessage{Text: m.Msg},
				Locations: []sarifLocation{loc},
			})
		}
	}

	slices.SortFunc(run.Tool.Driver.Rules, func(a, b sarifRule) int {
		return cmp.Compare(a.ID, b.ID)
	})
	run.Invocations = []sarifInvocation{invocation}

	data, err := json.MarshalIndent(sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	}, "", "  ")
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}
