package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

func TestFlatten(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 2, 3, 4}, Flatten([][]int{{1}, nil, {2, 3}, {}, {4}}))
	assert.Empty(t, Flatten[int](nil))
}

func TestRunItemStampsOwner(t *testing.T) {
	t.Parallel()

	item := model.WorkItem{ContainerID: 9, Input: model.Variant{ContainerID: 9, Structure: "CCO"}}
	out, rep := runItem(t.Context(), 4, item, func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
		return []model.Variant{{Structure: "CC[O-]"}}, nil
	})
	require.Len(t, out, 1)
	assert.Equal(t, 9, out[0].ContainerID)
	assert.Equal(t, 4, rep.Index)
	assert.Equal(t, 1, rep.Produced)
	assert.NoError(t, rep.Err)
}

func TestLocalCommCopiesMessages(t *testing.T) {
	t.Parallel()

	world, err := LocalRuntime{}.Open(2)
	require.NoError(t, err)
	defer world.Close()

	sender, err := world.Comm(0)
	require.NoError(t, err)
	receiver, err := world.Comm(1)
	require.NoError(t, err)

	variant := model.Variant{Structure: "CCO", Lineage: []string{"CCO (source)"}, Props: map[string]string{"a": "1"}}
	require.NoError(t, sender.Send(t.Context(), 1, Message{Tag: TagResult, Variants: []model.Variant{variant}}))
	variant.Lineage[0] = "changed"
	variant.Props["a"] = "2"

	msg, err := receiver.Recv(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Source)
	assert.Equal(t, "CCO (source)", msg.Variants[0].Lineage[0])
	assert.Equal(t, "1", msg.Variants[0].Props["a"])

	_, err = world.Comm(2)
	assert.ErrorIs(t, err, ErrRankOutOfRange)
}

func TestLocalWorldClosedRecv(t *testing.T) {
	t.Parallel()

	world, err := LocalRuntime{}.Open(1)
	require.NoError(t, err)
	comm, err := world.Comm(0)
	require.NoError(t, err)
	require.NoError(t, world.Close())

	_, err = comm.Recv(t.Context())
	assert.ErrorIs(t, err, ErrClosed)
}
