package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// distributed is the master side of a world. Worker ranks are started once,
// when the dispatcher is created, and stopped by Close.
type distributed struct {
	logger *slog.Logger
	world  World
	master Comm

	ranks   *errgroup.Group
	rankCtx context.Context
	cancel  context.CancelFunc

	// runMu serializes Run calls: the master owns every worker while a batch
	// is in flight.
	runMu   sync.Mutex
	jobsMu  sync.RWMutex
	jobs    map[uint64]GeneratorFunc
	lastJob uint64

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

func newDistributed(world World, logger *slog.Logger) (*distributed, error) {
	master, err := world.Comm(0)
	if err != nil {
		_ = world.Close()

		return nil, errors.Wrap(err, "unable to get master communicator")
	}

	rankCtx, cancel := context.WithCancel(context.Background())
	ranks, rankCtx := errgroup.WithContext(rankCtx)

	d := &distributed{
		logger:  logger,
		world:   world,
		master:  master,
		ranks:   ranks,
		rankCtx: rankCtx,
		cancel:  cancel,
		jobs:    make(map[uint64]GeneratorFunc),
	}

	for rank := 1; rank < world.Size(); rank++ {
		comm, err := world.Comm(rank)
		if err != nil {
			cancel()
			_ = ranks.Wait()
			_ = world.Close()

			return nil, errors.Wrapf(err, "unable to get communicator of rank %d", rank)
		}

		ranks.Go(func() error {
			return d.serve(rankCtx, comm)
		})
	}

	return d, nil
}

func (d *distributed) generator(job uint64) (GeneratorFunc, bool) {
	d.jobsMu.RLock()
	defer d.jobsMu.RUnlock()

	fn, ok := d.jobs[job]

	return fn, ok
}

// serve is the worker loop of one rank.
func (d *distributed) serve(ctx context.Context, comm Comm) error {
	for {
		msg, err := comm.Recv(ctx)
		if err != nil {
			return errors.Wrapf(err, "rank %d", comm.Rank())
		}

		switch msg.Tag {
		case TagStop:
			return nil
		case TagTask:
			reply := Message{Tag: TagResult, Job: msg.Job, Index: msg.Index}

			fn, ok := d.generator(msg.Job)
			if !ok {
				reply.Failed = true
				reply.ErrText = errors.Wrapf(ErrUnknownJob, "job %d", msg.Job).Error()
			} else {
				variants, rep := runItem(ctx, msg.Index, msg.Item, fn)
				reply.Variants = variants
				reply.Elapsed = rep.Elapsed
				if rep.Err != nil {
					reply.Failed = true
					reply.ErrText = rep.Err.Error()

					var itemErr *ItemError
					if errors.As(rep.Err, &itemErr) {
						reply.ErrText = itemErr.Err.Error()
						reply.Panicked = itemErr.Panicked
					}
				}
			}

			err = comm.Send(ctx, 0, reply)
			if err != nil {
				return errors.Wrapf(err, "rank %d", comm.Rank())
			}
		default:
			d.logger.Warn("ignoring unexpected message", "rank", comm.Rank(), "tag", msg.Tag, "source", msg.Source)
		}
	}
}

func (d *distributed) register(fn GeneratorFunc) uint64 {
	d.jobsMu.Lock()
	defer d.jobsMu.Unlock()

	d.lastJob++
	d.jobs[d.lastJob] = fn

	return d.lastJob
}

func (d *distributed) unregister(job uint64) {
	d.jobsMu.Lock()
	defer d.jobsMu.Unlock()

	delete(d.jobs, job)
}

func (d *distributed) Run(ctx context.Context, items []model.WorkItem, fn GeneratorFunc) (*Result, error) {
	if fn == nil {
		return nil, ErrGeneratorMustBeSet
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	slots := make([][]model.Variant, len(items))
	reports := make([]ItemReport, len(items))

	if d.world.Size() == 1 {
		// no worker rank: the master does the work
		for idx, item := range items {
			slots[idx], reports[idx] = runItem(ctx, idx, item, fn)
		}

		return collect(d.logger, slots, reports), nil
	}

	// a rank that dies must not leave the master waiting forever
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.rankCtx, cancel)
	defer stop()

	job := d.register(fn)
	defer d.unregister(job)

	next := 0
	send := func(rank int) error {
		msg := Message{Tag: TagTask, Job: job, Index: next, Item: items[next]}
		next++

		return d.master.Send(runCtx, rank, msg)
	}

	for rank := 1; rank < d.world.Size() && next < len(items); rank++ {
		err := send(rank)
		if err != nil {
			return nil, errors.Wrap(err, "distributed dispatch")
		}
	}

	for received := 0; received < len(items); {
		msg, err := d.master.Recv(runCtx)
		if err != nil {
			return nil, errors.Wrap(err, "distributed dispatch")
		}

		if msg.Tag != TagResult || msg.Job != job || msg.Index < 0 || msg.Index >= len(items) {
			d.logger.Warn("ignoring unexpected message", "tag", msg.Tag, "job", msg.Job, "source", msg.Source)

			continue
		}

		received++
		slots[msg.Index] = msg.Variants
		reports[msg.Index] = ItemReport{
			Index:       msg.Index,
			ContainerID: items[msg.Index].ContainerID,
			Produced:    len(msg.Variants),
			Elapsed:     msg.Elapsed,
		}
		if msg.Failed {
			reports[msg.Index].Err = &ItemError{
				Index:       msg.Index,
				ContainerID: items[msg.Index].ContainerID,
				Err:         errors.New(msg.ErrText),
				Panicked:    msg.Panicked,
			}
		}

		if next < len(items) {
			err = send(msg.Source)
			if err != nil {
				return nil, errors.Wrap(err, "distributed dispatch")
			}
		}
	}

	return collect(d.logger, slots, reports), nil
}

func (d *distributed) Mode() Mode { return Distributed }

func (d *distributed) Workers() int {
	return max(d.world.Size()-1, 1)
}

// Close stops every worker rank and closes the world.
func (d *distributed) Close() error {
	d.closeOnce.Do(func() {
		d.runMu.Lock()
		d.closed = true
		d.runMu.Unlock()

		for rank := 1; rank < d.world.Size(); rank++ {
			err := d.master.Send(d.rankCtx, rank, Message{Tag: TagStop})
			if err != nil {
				d.logger.Warn("unable to stop rank", "rank", rank, "error", err)
			}
		}

		err := d.ranks.Wait()
		d.cancel()
		if err != nil {
			d.closeErr = errors.Wrap(err, "worker rank failed")
		}

		err = d.world.Close()
		if err != nil && d.closeErr == nil {
			d.closeErr = errors.Wrap(err, "unable to close world")
		}
	})

	return d.closeErr
}
