package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/notify"
)

// PipelineOptions wires the stages of a run.
type PipelineOptions struct {
	Items      database.ArticleStore
	Recipients database.RecipientRegistry
	Ledger     database.DispatchLedger
	Runs       database.RunRecorder

	SourcesFile string
	Feeds       FeedSource
	Classifier  RelevanceClassifier
	// Retriever may be nil to skip full-text retrieval.
	Retriever       BodyRetriever
	MaxRetrievals   int
	Translator      ItemTranslator
	MaxTranslations int
	Senders         []notify.Sender
	AdminChatID     string

	// Alerter may be nil.
	Alerter Alerter
}

// Pipeline runs ingest, classify, enrich, translate and dispatch in order.
// A failing stage is recorded and the next stage still runs.
type Pipeline struct {
	opts PipelineOptions
}

var _ PipelineRunner = (*Pipeline)(nil)

func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{opts: opts}
}

func (p *Pipeline) Run(ctx context.Context) (*database.PipelineRun, error) {
	runKey := uuid.NewString()
	run, err := p.opts.Runs.StartRun(ctx, runKey)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	slog.Info("Pipeline run started", "run_id", run.ID, "run_key", runKey)
	started := time.Now()

	var counters database.RunCounters
	var errs []string

	for _, stage := range StageOrder {
		if err := p.runStage(ctx, p.newStage(stage, &counters)); err != nil {
			msg := fmt.Sprintf("%s failed: %v", stage, err)
			slog.Error("Stage failed", "run_id", run.ID, "stage", string(stage), "error", err)
			errs = append(errs, msg)
		}
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, fmt.Sprintf("run interrupted: %v", err))
	}

	// The run must be finalized even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)

	delivered, err := p.opts.Ledger.CountDelivered(ctx)
	if err != nil {
		slog.Warn("Failed to count delivered items", "run_id", run.ID, "error", err)
	} else {
		counters.Sent = delivered
	}

	if err := p.opts.Runs.FinishRun(ctx, run.ID, counters, errs); err != nil {
		return nil, fmt.Errorf("failed to finish run %d: %w", run.ID, err)
	}

	if len(errs) > 0 && p.opts.Alerter != nil {
		if err := p.opts.Alerter.Alert(ctx, errs); err != nil {
			slog.Warn("Failed to send error alert", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("Pipeline run finished",
		"run_id", run.ID,
		"duration", time.Since(started),
		"errors", len(errs),
		"fetched", counters.Fetched,
		"new", counters.NewItems,
		"relevant", counters.Relevant,
		"retrieved", counters.Retrieved,
		"translated", counters.Translated,
		"sent", counters.Sent)

	finished, err := p.opts.Runs.GetRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload run %d: %w", run.ID, err)
	}
	if finished == nil {
		return nil, fmt.Errorf("run %d disappeared", run.ID)
	}
	return finished, nil
}

// RunStage executes a single stage outside of a recorded run.
func (p *Pipeline) RunStage(ctx context.Context, stage TaskType) (database.RunCounters, error) {
	var counters database.RunCounters
	err := p.runStage(ctx, p.newStage(stage, &counters))
	return counters, err
}

func (p *Pipeline) newStage(stage TaskType, counters *database.RunCounters) TaskInterface {
	o := p.opts
	switch stage {
	case TaskTypeIngest:
		return NewIngestTask(o.SourcesFile, o.Feeds, o.Items, counters)
	case TaskTypeClassify:
		return NewClassifyTask(o.Classifier, o.Items, counters)
	case TaskTypeEnrich:
		return NewEnrichTask(o.Retriever, o.Items, o.MaxRetrievals, counters)
	case TaskTypeTranslate:
		return NewTranslateTask(o.Translator, o.Items, o.MaxTranslations, counters)
	case TaskTypeDispatch:
		return NewDispatchTask(o.Senders, o.Recipients, o.Ledger, o.AdminChatID, counters)
	}
	return &unknownStage{Task: NewTask(stage)}
}

// runStage converts a panic into an error so that one stage cannot take down
// the run.
func (p *Pipeline) runStage(ctx context.Context, task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	task.Start()
	slog.Debug("Stage started", "type", string(task.GetType()), "id", task.GetID())
	return task.Execute(ctx)
}

type unknownStage struct {
	Task
}

func (s *unknownStage) Execute(ctx context.Context) error {
	return fmt.Errorf("unknown stage %q", s.Type)
}
