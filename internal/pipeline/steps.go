package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/htmlcs/internal/database"
	"github.com/nao1215/htmlcs/internal/document"
	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/report"
	"github.com/nao1215/htmlcs/internal/sniffer"
)

// Step names, recorded in model.File.PerformedSteps.
const (
	StepInspect = "inspect"
	StepSniff   = "sniff"
	StepReport  = "report"
	StepStore   = "store"
)

// InspectStep reads the document title and language before sniffing.
// A document that cannot be parsed is left as is; the sniffer reports on
// it regardless.
type InspectStep struct {
	logger *slog.Logger
}

// NewInspectStep creates a new inspection step.
func NewInspectStep(logger *slog.Logger) *InspectStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectStep{logger: logger}
}

// Name returns the step name.
func (s *InspectStep) Name() string {
	return StepInspect
}

// Do executes the inspection step.
func (s *InspectStep) Do(_ context.Context, file *model.File) error {
	info, err := document.Inspect(file.Path)
	if err != nil {
		s.logger.Debug("inspection failed", "file", file.Path, "error", err)
		return nil
	}
	file.Title = info.Title
	file.Lang = info.Lang
	file.Language = info.Language
	if info.Lang != "" && info.Language == "" {
		s.logger.Debug("invalid lang attribute", "file", file.Path, "lang", info.Lang)
	}
	return nil
}

// SniffStep runs HTML_CodeSniffer on the file and attaches the report.
type SniffStep struct {
	sniffer    *sniffer.Sniffer
	optionsFor func(path string) model.Options
}

// SniffStepOption configures a SniffStep.
type SniffStepOption func(*SniffStep)

// WithOptionsFor resolves the sniff options per file, e.g. from path
// overrides of the configuration file.
func WithOptionsFor(fn func(path string) model.Options) SniffStepOption {
	return func(s *SniffStep) {
		s.optionsFor = fn
	}
}

// NewSniffStep creates a sniffing step. Without WithOptionsFor every file
// uses the sniffer's options.
func NewSniffStep(sn *sniffer.Sniffer, opts ...SniffStepOption) *SniffStep {
	s := &SniffStep{sniffer: sn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SniffStep) Name() string {
	return StepSniff
}

// Do executes the sniffing step.
func (s *SniffStep) Do(ctx context.Context, file *model.File) error {
	if s.optionsFor == nil {
		return s.sniffer.Process(ctx, file)
	}
	return s.sniffer.ProcessWith(ctx, file, s.optionsFor(file.Path))
}

// ReportStep prints the findings of the file to the console.
type ReportStep struct {
	reporter  *report.ConsoleReporter
	filterFor func(path string) []model.MessageType
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithFilterFor resolves the message filter per file.
func WithFilterFor(fn func(path string) []model.MessageType) ReportStepOption {
	return func(s *ReportStep) {
		s.filterFor = fn
	}
}

// NewReportStep creates a console reporting step.
func NewReportStep(reporter *report.ConsoleReporter, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{reporter: reporter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return StepReport
}

// Do executes the reporting step.
func (s *ReportStep) Do(_ context.Context, file *model.File) error {
	if s.filterFor == nil {
		return s.reporter.Report(file)
	}
	return s.reporter.ReportFiltered(file, s.filterFor(file.Path))
}

// StoreStep saves annotated files to the report database.
type StoreStep struct {
	db     *database.ReportDB
	runID  string
	logger *slog.Logger
}

// NewStoreStep creates a storage step writing under runID.
func NewStoreStep(db *database.ReportDB, runID string, logger *slog.Logger) *StoreStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStep{db: db, runID: runID, logger: logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return StepStore
}

// Do executes the storage step. Unannotated files are skipped.
func (s *StoreStep) Do(ctx context.Context, file *model.File) error {
	if !file.Annotated() {
		return nil
	}
	id, err := s.db.SaveReport(ctx, s.runID, file)
	if err != nil {
		return err
	}
	s.logger.Debug("report saved", "file", file.Path, "id", id, "run", s.runID)
	return nil
}

// Components are the shared pieces DefaultPipeline wires into steps.
// One set of components serves every file of a run.
type Components struct {
	// Sniffer runs the engine. Required.
	Sniffer *sniffer.Sniffer

	// Reporter prints findings. Nil skips console reporting.
	Reporter *report.ConsoleReporter

	// DB stores reports under RunID. Nil skips storage.
	DB    *database.ReportDB
	RunID string

	// OptionsFor and FilterFor resolve per-file settings.
	OptionsFor func(path string) model.Options
	FilterFor  func(path string) []model.MessageType

	Logger *slog.Logger
}

// DefaultPipeline creates a pipeline of inspect, sniff, report and store
// steps, skipping the steps whose component is nil.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddStep(NewInspectStep(c.Logger))

	var sniffOpts []SniffStepOption
	if c.OptionsFor != nil {
		sniffOpts = append(sniffOpts, WithOptionsFor(c.OptionsFor))
	}
	p.AddStep(NewSniffStep(c.Sniffer, sniffOpts...))

	if c.Reporter != nil {
		var reportOpts []ReportStepOption
		if c.FilterFor != nil {
			reportOpts = append(reportOpts, WithFilterFor(c.FilterFor))
		}
		p.AddStep(NewReportStep(c.Reporter, reportOpts...))
	}

	if c.DB != nil {
		p.AddStep(NewStoreStep(c.DB, c.RunID, c.Logger))
	}

	return p
}
