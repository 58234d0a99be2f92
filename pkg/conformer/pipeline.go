package conformer

import (
	"context"
	"log/slog"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/internal/logging"
	"github.com/askiada/go-conformer/internal/stagestore"
	"github.com/askiada/go-conformer/pkg/conformer/archive"
	"github.com/askiada/go-conformer/pkg/conformer/archive/sqlite"
	"github.com/askiada/go-conformer/pkg/conformer/config"
	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/drawer"
	"github.com/askiada/go-conformer/pkg/conformer/failure"
	"github.com/askiada/go-conformer/pkg/conformer/measure"
	"github.com/askiada/go-conformer/pkg/conformer/model"
	"github.com/askiada/go-conformer/pkg/conformer/registry"
	"github.com/askiada/go-conformer/pkg/conformer/selector"
)

// Pipeline is an ordered set of stages run over the containers of a batch.
type Pipeline struct {
	cfg        config.Config
	logger     *slog.Logger
	runtime    dispatch.Runtime
	selector   *selector.Selector
	normalizer registry.Normalizer
	archive    archive.Archive
	runOpts    []model.RunOption
	// ownLogger is set when the logger was built from the configuration.
	ownLogger *logging.Logger

	store *stagestore.MemoryStore[string, Stage]
	graph graph.Graph[string, Stage]
	last  string
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	Start time.Time
	End   time.Time
	// Containers holds every registered container, failed ones included.
	Containers []*model.Container
	Failures   []failure.Record
	// FailureFile is the path of the failed molecules file, if one was written.
	FailureFile string
	Renames     []registry.Rename
	Rejected    []*registry.RejectionError
	Stages      []archive.StageRecord
	// Variants is the number of final identifiers assigned.
	Variants int
}

// New creates a pipeline for cfg. Without WithLogger, the logger is built from
// the log settings of cfg and released by Close. Distributed mode probes its
// runtime here. Run options are initialised here. When the configuration names
// a stage diagram, the stage timings are measured and drawn to it at the end of
// every run.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	store := stagestore.New[string, Stage]()
	pipe := &Pipeline{
		cfg:   cfg,
		store: store,
		graph: graph.NewWithStore(stageHash, graph.Store[string, Stage](store), graph.Directed(), graph.PreventCycles()),
	}

	for _, opt := range opts {
		opt(pipe)
	}

	if pipe.logger == nil {
		logger, err := logging.New(cfg.Logging())
		if err != nil {
			return nil, errors.Wrap(err, "unable to create logger")
		}
		pipe.logger = logger.Logger
		pipe.ownLogger = logger
	}

	err := pipe.init()
	if err != nil {
		_ = pipe.Close()

		return nil, err
	}

	return pipe, nil
}

func (p *Pipeline) init() error {
	cfg := p.cfg

	if cfg.Mode == dispatch.Distributed {
		err := dispatch.Probe(p.runtime)
		if err != nil {
			return errors.Wrap(err, "unable to use distributed mode")
		}
	}

	if p.selector == nil {
		p.selector = selector.New(selector.WithSeed(uint64(cfg.SelectionSeed)))
	}
	if p.normalizer == nil {
		p.normalizer = registry.LexicalNormalizer{}
	}

	if cfg.StageDiagram != "" {
		msr := measure.NewDefaultMeasure()
		p.runOpts = append(p.runOpts,
			measure.PipelineMeasure(msr),
			drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.StageDiagram), msr),
		)
	}

	for _, notice := range cfg.Notices {
		p.logger.Warn(notice)
	}

	for _, opt := range p.runOpts {
		err := opt.New()
		if err != nil {
			return errors.Wrap(err, "unable to apply run option")
		}
	}

	return nil
}

// Close releases the log output opened by New. A logger given with
// WithLogger is left to the caller.
func (p *Pipeline) Close() error {
	if p.ownLogger == nil {
		return nil
	}

	return p.ownLogger.Close()
}

// Run registers the records and runs every stage over them. The dispatcher is
// opened first, so a missing distributed runtime fails before any work, and
// it is always closed before Run returns.
func (p *Pipeline) Run(ctx context.Context, records []model.InputRecord) (res *Result, err error) {
	stages, err := p.Stages()
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	res = &Result{RunID: uuid.NewString(), Start: time.Now()}
	logger := p.logger.With("run_id", res.RunID)

	disp, err := dispatch.New(p.cfg.Mode, p.cfg.NumProcessors,
		dispatch.WithLogger(logger),
		dispatch.WithRuntime(p.runtime),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to start dispatcher")
	}
	defer func() {
		cerr := disp.Close()
		if cerr != nil && err == nil {
			err = errors.Wrap(cerr, "unable to stop dispatcher")
		}
	}()

	reg := registry.New(registry.WithNormalizer(p.normalizer), registry.WithLogger(logger))
	state := &run{logger: logger, disp: disp, reg: reg, bases: make(map[int][]string)}

	for _, rec := range records {
		_, err := reg.Register(rec)

		var rej *registry.RejectionError
		if errors.As(err, &rej) {
			res.Rejected = append(res.Rejected, rej)

			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "unable to register record")
		}
	}

	logger.Info("run started",
		"containers", reg.Len(),
		"rejected", len(res.Rejected),
		"mode", disp.Mode(),
		"workers", disp.Workers(),
		"stages", len(stages),
	)

	infos, err := p.prepareStages(stages, disp)
	if err != nil {
		return nil, err
	}

	for i, stage := range stages {
		summary, err := p.runStage(ctx, state, stage, infos[i], i == 0)
		if err != nil {
			return nil, err
		}
		res.Stages = append(res.Stages, archive.StageRecord{Name: stage.Name, Summary: summary})
	}

	res.Variants, err = reg.AssignFinalIdentifiers()
	if err != nil {
		return nil, errors.Wrap(err, "unable to assign final identifiers")
	}

	res.Containers = reg.Containers()
	res.Renames = reg.Renames()
	res.Failures = failure.CollectFailures(res.Containers)

	if p.cfg.OutputFile != "" {
		res.FailureFile, err = failure.WriteFile(p.cfg.OutputFile, res.Failures)
		if err != nil {
			return nil, err
		}
	}

	res.End = time.Now()

	err = p.save(ctx, res)
	if err != nil {
		return nil, err
	}

	logger.Info("run finished",
		"containers", len(res.Containers),
		"variants", res.Variants,
		"failed", len(res.Failures),
		"rejected", len(res.Rejected),
		"renamed", len(res.Renames),
		"duration", res.End.Sub(res.Start),
	)

	for _, opt := range p.runOpts {
		err := opt.Finish(res.End.Sub(res.Start))
		if err != nil {
			return nil, errors.Wrap(err, "unable to finish run option")
		}
	}

	return res, nil
}

func (p *Pipeline) prepareStages(stages []Stage, disp dispatch.Dispatcher) ([]*model.StageInfo, error) {
	infos := make([]*model.StageInfo, len(stages))
	parent := model.StartStage

	for i, stage := range stages {
		info := &model.StageInfo{
			Name:         stage.Name,
			Mode:         disp.Mode().String(),
			Workers:      disp.Workers(),
			MaxKeep:      p.cfg.MaxVariantsPerCompound,
			Thoroughness: p.cfg.Thoroughness,
		}

		for _, opt := range p.runOpts {
			err := opt.PrepareStage(parent, info)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to prepare stage %s", stage.Name)
			}
		}

		infos[i] = info
		parent = info
	}

	return infos, nil
}

// run is the state shared by the stages of one Run call.
type run struct {
	logger *slog.Logger
	disp   dispatch.Dispatcher
	reg    *registry.Registry
	// bases holds, per container, the lineage of the first variant the first
	// stage generated.
	bases map[int][]string
}

// runStage dispatches one stage and commits its survivors. The first stage
// expands the source variant of every container; later stages expand every
// live variant. Containers without any live variant are left out.
func (p *Pipeline) runStage(
	ctx context.Context,
	state *run,
	stage Stage,
	info *model.StageInfo,
	first bool,
) (model.StageSummary, error) {
	var (
		summary model.StageSummary
		items   []model.WorkItem
	)

	logger, reg := state.logger, state.reg

	sc := p.cfg.StageConfig(stage.Name)
	inputs := make(map[int][]model.Variant)

	for _, ctn := range reg.Containers() {
		in := ctn.Variants
		if first {
			in = []model.Variant{ctn.Source()}
		}
		if len(in) == 0 {
			continue
		}

		inputs[ctn.ID()] = in
		for _, v := range in {
			items = append(items, model.WorkItem{ContainerID: ctn.ID(), Name: ctn.Name, Input: v, Config: sc})
		}
	}

	start := time.Now()

	out, err := state.disp.Run(ctx, items, stage.Generator)
	if err != nil {
		return summary, errors.Wrapf(err, "stage %s", stage.Name)
	}

	summary.Dispatch = time.Since(start)
	summary.Items = len(out.Items)
	summary.Generated = len(out.Variants)

	for _, rep := range out.Items {
		if rep.Err != nil {
			summary.Failed++
		}

		for _, opt := range p.runOpts {
			err := opt.OnItem(info, rep.Elapsed, rep.Produced, rep.Err)
			if err != nil {
				return summary, errors.Wrap(err, "unable to record work item")
			}
		}
	}

	grouped := make(map[int][]model.Variant, len(inputs))
	for _, v := range out.Variants {
		grouped[v.ContainerID] = append(grouped[v.ContainerID], v)
	}

	start = time.Now()

	for _, ctn := range reg.Containers() {
		in, ok := inputs[ctn.ID()]
		if !ok {
			continue
		}

		kept := p.selector.Select(grouped[ctn.ID()], sc.MaxKeep, sc.Thoroughness)
		if first && len(kept) > 0 {
			state.bases[ctn.ID()] = kept[0].Lineage
		}
		if len(kept) == 0 {
			kept = fallback(stage, ctn, in, state.bases[ctn.ID()])
			if len(kept) > 0 {
				summary.Fallbacks++
				logger.Warn("stage produced no variants, using fallback",
					"stage", stage.Name,
					"container_id", ctn.ID(),
					"name", ctn.Name,
					"fallback", stage.Fallback,
				)
			}
		}

		err := reg.CommitStageResult(ctn.ID(), kept)
		if err != nil {
			return summary, errors.Wrapf(err, "stage %s", stage.Name)
		}
		summary.Kept += len(kept)
	}

	summary.Selection = time.Since(start)

	logger.Debug("stage finished",
		"stage", stage.Name,
		"items", summary.Items,
		"failed", summary.Failed,
		"generated", summary.Generated,
		"kept", summary.Kept,
		"fallbacks", summary.Fallbacks,
	)

	for _, opt := range p.runOpts {
		err := opt.AfterStage(info, summary)
		if err != nil {
			return summary, errors.Wrapf(err, "unable to finish stage %s", stage.Name)
		}
	}

	return summary, nil
}

// fallback builds the variants of a container the stage left empty. A source
// fallback keeps the lineage the first stage gave the container, if any.
func fallback(stage Stage, ctn *model.Container, in []model.Variant, base []string) []model.Variant {
	note := stage.fallbackNote()

	switch stage.Fallback {
	case FallbackSource:
		src := ctn.Source()
		if len(base) > 0 {
			src.Lineage = base
		}

		return []model.Variant{src.Annotate(note)}
	case FallbackCarryOver:
		res := make([]model.Variant, len(in))
		for i, v := range in {
			res[i] = v.Annotate(note)
		}

		return res
	default:
		return nil
	}
}

func (p *Pipeline) save(ctx context.Context, res *Result) error {
	arc := p.archive
	if arc == nil && p.cfg.ArchivePath != "" {
		store, err := sqlite.Open(ctx, p.cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer store.Close()

		arc = store
	}

	if arc == nil {
		return nil
	}

	err := arc.Save(ctx, archive.Snapshot{
		RunID:    res.RunID,
		Start:    res.Start,
		End:      res.End,
		Stages:   res.Stages,
		Variants: archive.Variants(res.Containers),
		Failures: res.Failures,
	})
	if err != nil {
		return errors.Wrap(err, "unable to archive run")
	}

	return nil
}
