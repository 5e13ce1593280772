package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calstate/internal/datetime"
	"calstate/internal/model"
)

func seeded(t *testing.T, starts ...string) *Index {
	t.Helper()
	configs := make([]model.Config, 0, len(starts))
	for i, s := range starts {
		start := datetime.MustParseIn(s, time.UTC)
		configs = append(configs, model.Config{
			ID:        string(rune('a' + i)),
			StartDate: &start,
			Type:      model.TypeTask,
			Status:    model.StatusDefault,
		})
	}
	x, err := New(nil, configs)
	require.NoError(t, err)
	return x
}

// checkChain verifies the structural invariants: every node is reached
// exactly once from head, the walk ends at the tail, and starts never
// increase.
func checkChain(t *testing.T, x *Index) {
	t.Helper()
	seen := map[string]bool{}
	var prev *node
	for cursor := x.head; cursor != ""; {
		n, ok := x.nodes[cursor]
		require.True(t, ok, "dangling id %s", cursor)
		require.False(t, seen[cursor], "cycle at %s", cursor)
		seen[cursor] = true
		if prev != nil {
			require.True(t, prev.start.IsOnOrAfter(n.start))
		}
		_, stored := x.handles[cursor]
		require.True(t, stored, "node without entry %s", cursor)
		prev = n
		cursor = n.next
	}
	require.Len(t, seen, len(x.nodes))
}

func Test_Chain_Invariants_Hold_Across_Mutations(t *testing.T) {
	t.Parallel()

	x := seeded(t, "2024-12-24", "2024-12-22", "2024-12-20")
	checkChain(t, x)

	start := datetime.MustParseIn("2024-12-22", time.UTC)
	_, err := x.Add(model.Config{ID: "tie", StartDate: &start, Type: model.TypeSlot, Status: model.StatusDefault})
	require.NoError(t, err)
	checkChain(t, x)

	_, err = x.Delete("b")
	require.NoError(t, err)
	checkChain(t, x)

	_, err = x.Update("c", model.Patch{StartDate: &start})
	require.NoError(t, err)
	checkChain(t, x)

	assert.Equal(t, "a", x.head)
	assert.Equal(t, "tie", x.nodes["a"].next)
	assert.Equal(t, "c", x.nodes["tie"].next)
	assert.Equal(t, "", x.nodes["c"].next)
}

func Test_Chain_Dangling_Successor_Is_Inconsistent(t *testing.T) {
	t.Parallel()

	x := seeded(t, "2024-12-24", "2024-12-22", "2024-12-20")
	delete(x.nodes, "b")

	iv := datetime.MustInterval(
		datetime.MustParseIn("2024-12-01", time.UTC),
		datetime.MustParseIn("2024-12-31", time.UTC),
	)
	_, err := x.FindInInterval(iv)
	require.ErrorIs(t, err, ErrInconsistent)

	_, err = x.Delete("c")
	require.ErrorIs(t, err, ErrInconsistent)
	_, stillThere := x.handles["c"]
	assert.True(t, stillThere, "failed delete must not remove the entry")

	start := datetime.MustParseIn("2024-12-01", time.UTC)
	_, err = x.Add(model.Config{ID: "z", StartDate: &start, Type: model.TypeTask, Status: model.StatusDefault})
	require.ErrorIs(t, err, ErrInconsistent)
	_, added := x.handles["z"]
	assert.False(t, added, "failed add must not store the entry")

	require.ErrorIs(t, x.Walk(func(model.Entry) bool { return true }), ErrInconsistent)
}

func Test_Chain_Unreachable_Node_Is_Inconsistent(t *testing.T) {
	t.Parallel()

	x := seeded(t, "2024-12-24", "2024-12-22")
	x.nodes["a"].next = ""

	_, err := x.Delete("b")
	require.ErrorIs(t, err, ErrInconsistent)
}

func Test_Node_SameDates(t *testing.T) {
	t.Parallel()

	start := datetime.MustParseIn("2024-12-22", time.UTC)
	end := datetime.MustParseIn("2024-12-23", time.UTC)
	e, err := model.NewEntry(model.Config{ID: "a", StartDate: &start, EndDate: &end, Type: model.TypeEvent, Status: model.StatusDefault})
	require.NoError(t, err)

	n := newNode(e)
	require.NotNil(t, n)
	assert.True(t, n.sameDates(e))

	noEnd, err := e.Update(model.Patch{ClearEndDate: true})
	require.NoError(t, err)
	assert.False(t, n.sameDates(noEnd))

	undated, err := e.Update(model.Patch{ClearStartDate: true})
	require.NoError(t, err)
	assert.False(t, n.sameDates(undated))
	assert.Nil(t, newNode(undated))
}
