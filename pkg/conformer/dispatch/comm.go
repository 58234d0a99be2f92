package dispatch

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// Tag identifies the kind of a Message.
type Tag int

const (
	TagTask Tag = iota + 1
	TagResult
	TagStop
)

// Message is what ranks exchange. Generators are never sent: a rank resolves
// the generator of a task from its Job id.
type Message struct {
	Item     model.WorkItem
	ErrText  string
	Variants []model.Variant
	Tag      Tag
	Source   int
	Job      uint64
	Index    int
	Elapsed  time.Duration
	Failed   bool
	Panicked bool
}

// Comm is the point-to-point communicator of one rank.
type Comm interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dest int, msg Message) error
	Recv(ctx context.Context) (Message, error)
}

// World is a group of ranks. Rank 0 is the master.
type World interface {
	Size() int
	Comm(rank int) (Comm, error)
	Close() error
}

// Runtime gives access to a cluster. Probe reports whether the cluster can be
// used from this process; it is called once, before Open.
type Runtime interface {
	Name() string
	Probe() error
	Open(size int) (World, error)
}

// LocalRuntime opens worlds whose ranks live in the current process and talk
// through channels. Messages are copied on send so ranks never share variant
// data.
type LocalRuntime struct {
	// Buffer is the inbox capacity of every rank. Zero means one slot per rank.
	Buffer int
}

func (LocalRuntime) Name() string { return "local" }

func (LocalRuntime) Probe() error { return nil }

func (lr LocalRuntime) Open(size int) (World, error) {
	if size < 1 {
		return nil, errors.Wrapf(ErrWorldMustHaveMaster, "got %d", size)
	}

	buffer := lr.Buffer
	if buffer <= 0 {
		buffer = size
	}

	world := &localWorld{
		inboxes: make([]chan Message, size),
		done:    make(chan struct{}),
	}
	for rank := range world.inboxes {
		world.inboxes[rank] = make(chan Message, buffer)
	}

	return world, nil
}

type localWorld struct {
	inboxes []chan Message
	done    chan struct{}
	once    sync.Once
}

func (w *localWorld) Size() int {
	return len(w.inboxes)
}

func (w *localWorld) Comm(rank int) (Comm, error) {
	if rank < 0 || rank >= len(w.inboxes) {
		return nil, errors.Wrapf(ErrRankOutOfRange, "rank %d in world of %d", rank, len(w.inboxes))
	}

	return &localComm{world: w, rank: rank}, nil
}

func (w *localWorld) Close() error {
	w.once.Do(func() {
		close(w.done)
	})

	return nil
}

type localComm struct {
	world *localWorld
	rank  int
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.world.Size() }

func (c *localComm) Send(ctx context.Context, dest int, msg Message) error {
	if dest < 0 || dest >= len(c.world.inboxes) {
		return errors.Wrapf(ErrRankOutOfRange, "send to rank %d", dest)
	}

	msg.Source = c.rank
	msg = copyMessage(msg)

	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "rank %d: send to %d", c.rank, dest)
	case <-c.world.done:
		return errors.Wrapf(ErrClosed, "rank %d: send to %d", c.rank, dest)
	case c.world.inboxes[dest] <- msg:
		return nil
	}
}

func (c *localComm) Recv(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, errors.Wrapf(ctx.Err(), "rank %d: recv", c.rank)
	case <-c.world.done:
		return Message{}, errors.Wrapf(ErrClosed, "rank %d: recv", c.rank)
	case msg := <-c.world.inboxes[c.rank]:
		return msg, nil
	}
}

func copyVariant(v model.Variant) model.Variant {
	v.Lineage = append([]string(nil), v.Lineage...)
	v.Props = maps.Clone(v.Props)

	return v
}

func copyMessage(msg Message) Message {
	msg.Item.Input = copyVariant(msg.Item.Input)
	if msg.Variants != nil {
		variants := make([]model.Variant, len(msg.Variants))
		for i, v := range msg.Variants {
			variants[i] = copyVariant(v)
		}
		msg.Variants = variants
	}

	return msg
}
