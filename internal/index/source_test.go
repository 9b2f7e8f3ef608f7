package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordex/internal/errs"
	"github.com/roach88/ordex/internal/notify"
	"github.com/roach88/ordex/internal/testutil"
)

func TestObservableSlice_Mutations(t *testing.T) {
	people := testutil.People()
	s := newSource(people[0])

	var got []string
	cancel := s.Subscribe(func(ev notify.ChangeEvent[*person]) {
		got = append(got, ev.Action.String())
	})

	s.Append(people[1], people[2])
	require.NoError(t, s.Insert(0, people[3]))
	_, err := s.Set(1, people[4])
	require.NoError(t, err)
	require.NoError(t, s.Move(0, 3))
	_, err = s.RemoveAt(0)
	require.NoError(t, err)
	s.Reset(people[5])

	assert.Equal(t, []string{"Add", "Add", "Replace", "Move", "Remove", "Reset"}, got)
	assert.Equal(t, []*person{people[5]}, s.Items())

	cancel()
	cancel()
	s.Append(people[0])
	assert.Len(t, got, 6, "no events after cancel")
}

func TestObservableSlice_MoveAndBounds(t *testing.T) {
	s := NewObservableSlice(quietLogger(), "a", "b", "c", "d")

	require.NoError(t, s.Move(0, 2))
	assert.Equal(t, []string{"b", "c", "a", "d"}, s.Items())
	require.NoError(t, s.Move(3, 0))
	assert.Equal(t, []string{"d", "b", "c", "a"}, s.Items())

	assert.True(t, errs.IsInvalidArgument(s.Insert(9, "x")))
	_, err := s.RemoveAt(-1)
	assert.True(t, errs.IsInvalidArgument(err))
	_, err = s.Set(4, "x")
	assert.True(t, errs.IsInvalidArgument(err))
	assert.True(t, errs.IsInvalidArgument(s.Move(0, 4)))
	assert.Equal(t, 4, s.Len())
}

func TestView_FollowsSourceAdd(t *testing.T) {
	people := testutil.People()
	src := newSource(people[:2]...)
	v := newView(t, src)

	src.Append(people[2], nil, people[3])

	assert.Equal(t, []int{1, 3}, lookupIDs(t, v, "Smith"))
	assert.Equal(t, []int{4}, lookupIDs(t, v, "Brown"))
	assert.Equal(t, 4, v.Len())
}

func TestView_FollowsSourceRemove(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src)

	_, err := src.RemoveAt(3) // Brown
	require.NoError(t, err)

	_, found := v.Lookup("Brown")
	assert.False(t, found)
	assert.Equal(t, 5, v.Len())
	requireConsistent(t, v)
}

func TestView_SourceReplaceRemovesStaleOldItem(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src)

	replacement := &person{ID: 7, First: "Gus", Surname: "Brown"}
	_, err := src.Set(0, replacement) // Ann Smith -> Gus Brown

	require.NoError(t, err)
	assert.Equal(t, []int{3, 6}, lookupIDs(t, v, "Smith"))
	assert.Equal(t, []int{4, 7}, lookupIDs(t, v, "Brown"))
	assert.False(t, v.Contains(people[0]))
	assert.Equal(t, 6, v.Len())
}

func TestView_SourceReplaceOfEqualEntityUpdatesInPlace(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src, WithEquality(testutil.SameID))

	renamed := &person{ID: 1, First: "Ann", Surname: "Jones"}
	_, err := src.Set(0, renamed)

	require.NoError(t, err)
	assert.Equal(t, []int{3, 6}, lookupIDs(t, v, "Smith"))
	assert.Equal(t, []int{2, 5, 1}, lookupIDs(t, v, "Jones"))
	assert.Equal(t, 6, v.Len())
}

func TestView_ConsolidatedReplacesApplyInOrder(t *testing.T) {
	people := testutil.People()
	ann, dee := people[0], people[3]
	src := newSource(ann)
	v := newView(t, src)

	release := src.Suspend()
	_, err := src.Set(0, dee)
	require.NoError(t, err)
	_, err = src.Set(0, ann)
	require.NoError(t, err)
	release()

	assert.Equal(t, []*person{ann}, src.Items())
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []string{"Smith"}, v.Keys())
	assert.False(t, v.Contains(dee))
	requireConsistent(t, v)
}

func TestView_ConsolidatedReplacesAtDistinctPositions(t *testing.T) {
	people := testutil.People()
	src := newSource(people[0], people[1])
	v := newView(t, src)

	release := src.Suspend()
	_, err := src.Set(0, people[3])
	require.NoError(t, err)
	_, err = src.Set(1, people[4])
	require.NoError(t, err)
	release()

	assert.Equal(t, 2, v.Len())
	assert.True(t, v.Contains(people[3]))
	assert.True(t, v.Contains(people[4]))
	assert.False(t, v.Contains(people[0]))
	assert.False(t, v.Contains(people[1]))
	requireConsistent(t, v)
}

func TestView_SourceMoveIsUpsert(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src)

	require.NoError(t, src.Move(0, 5))

	assert.Equal(t, []int{1, 3, 6}, lookupIDs(t, v, "Smith"), "bucket order unaffected by source order")
	assert.Equal(t, 6, v.Len())
}

func TestView_SourceResetRebuilds(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src)
	rec := &recorder{}
	v.Router().Subscribe(nil, "rec", rec)

	src.Reset(people[3], people[1])

	assert.Equal(t, []string{"Brown", "Jones"}, v.Keys())
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []notify.Action{notify.ActionReset}, rec.actions())
	requireConsistent(t, v)
}

func TestView_SourceBatchDeliveredConsolidated(t *testing.T) {
	people := testutil.People()
	src := newSource()
	v := newView(t, src)
	rec := &recorder{}
	v.Router().Subscribe(nil, "rec", rec)

	release := src.Suspend()
	for _, p := range people {
		src.Append(p)
	}
	assert.Zero(t, v.Len(), "nothing delivered while held")
	release()

	assert.Equal(t, 6, v.Len())
	assert.Len(t, rec.events, 6, "view emits one event per applied upsert")
}

func TestView_CloseStopsFollowingSource(t *testing.T) {
	people := testutil.People()
	src := newSource(people[:3]...)
	v := newView(t, src)

	v.Close()
	v.Close()
	src.Append(people[3])

	assert.Equal(t, 3, v.Len())
	_, found := v.Lookup("Brown")
	assert.False(t, found)
}

func TestView_UniqueSourcePathNeverFails(t *testing.T) {
	people := testutil.People()
	src := newSource(people...)
	v := newView(t, src, WithUnique(true), WithEquality(testutil.SameID))

	src.Append(&person{ID: 1, First: "Ann", Surname: "Smith"})

	assert.Equal(t, 6, v.Len(), "duplicate upserted in place")
}

func TestUntypedView(t *testing.T) {
	people := testutil.People()
	u := NewUntyped(newView(t, newSource(people[:2]...)))

	ok, err := u.AddAny(people[2])
	require.NoError(t, err)
	assert.True(t, ok)

	has, err := u.ContainsAny(people[2])
	require.NoError(t, err)
	assert.True(t, has)

	items, found, err := u.LookupAny("Smith")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{1, 3}, ids(items))

	removed, err := u.RemoveAny(people[2])
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = u.AddAny("Smith")
	assert.True(t, errs.IsInvalidArgument(err))
	_, err = u.RemoveAny(42)
	assert.True(t, errs.IsInvalidArgument(err))
	_, err = u.ContainsAny(testutil.Person{ID: 1})
	assert.True(t, errs.IsInvalidArgument(err))
	_, _, err = u.LookupAny(1)
	assert.True(t, errs.IsInvalidArgument(err))

	assert.Equal(t, 2, u.View().Len())
}

// churnSource appends one more item right after the view first reads it.
type churnSource struct {
	*ObservableSlice[*person]
	extra *person
	once  sync.Once
}

func (s *churnSource) Items() []*person {
	items := s.ObservableSlice.Items()
	s.once.Do(func() { s.Append(s.extra) })
	return items
}

func TestNew_MutationDuringInitialIndexIsKept(t *testing.T) {
	people := testutil.People()
	src := &churnSource{ObservableSlice: newSource(people[:3]...), extra: people[3]}
	v := newView(t, src)

	assert.Equal(t, 4, v.Len())
	assert.True(t, v.Contains(people[3]))
	assert.Equal(t, []string{"Smith", "Jones", "Brown"}, v.Keys())
	requireConsistent(t, v)

	src.Append(people[4])
	assert.Equal(t, 5, v.Len(), "view follows the source after construction")
}
