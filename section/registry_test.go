package section

import (
	"errors"
	"testing"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertItems(t *testing.T, r *Registry, n int) []ItemID {
	tx, err := r.Begin()
	require.NoError(t, err)
	if r.Editing().SectionCount() == 0 {
		ids, err := tx.InsertSections(0, SectionInfo{DebugName: "main"})
		require.NoError(t, err)
		require.Len(t, ids, 1)
	}
	items, err := tx.InsertItems(0, 0, n)
	require.NoError(t, err)
	_, err = tx.End()
	require.NoError(t, err)
	return items
}

func TestInsertHundredItems(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 100)
	assert.Equal(t, SectionID(0), r.Editing().Section(0).ID)
	// not yet committed
	assert.True(t, r.ResolveIndexPath(items[50]).IsNothing())
	delta, ok, err := r.CommitNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{0}, delta.InsertedSections)
	p, found := r.ResolveIndexPath(items[50]).Get()
	require.True(t, found)
	assert.Equal(t, IndexPath{Section: 0, Item: 50}, p)
	id, found := r.ItemAt(IndexPath{0, 99}).Get()
	require.True(t, found)
	assert.Equal(t, items[99], id)
}

func TestSecondTransactionFails(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	tx, err := r.Begin()
	require.NoError(t, err)
	_, err = r.Begin()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransactionAlreadyOpen))
	assert.True(t, errors.Is(err, contract.ErrProtocolViolation))
	tx.Rollback()
	_, err = tx.InsertSections(0, SectionInfo{})
	assert.True(t, errors.Is(err, ErrNoOpenTransaction))
	_, err = r.Begin()
	assert.NoError(t, err)
}

func TestRollbackRestoresEditing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	insertItems(t, r, 3)
	before := r.Editing()
	tx, _ := r.Begin()
	require.NoError(t, tx.DeleteItems(IndexPath{0, 1}))
	assert.Equal(t, 2, r.Editing().ItemCount(0))
	tx.Rollback()
	assert.Same(t, before, r.Editing())
	assert.Equal(t, 1, r.PendingCount())
}

func TestDeleteBeforeCommit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 10)
	tx, _ := r.Begin()
	require.NoError(t, tx.DeleteItems(IndexPath{0, 5}))
	p, err := tx.End()
	require.NoError(t, err)
	assert.Equal(t, []ItemID{items[5]}, p.Deleted)
	assert.Empty(t, p.Inserted)
	// generation 1 still resolves the item
	_, _, err = r.CommitNext()
	require.NoError(t, err)
	assert.False(t, r.ResolveIndexPath(items[5]).IsNothing())
	delta, ok, err := r.CommitNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []IndexPath{{0, 5}}, delta.Deleted)
	assert.Empty(t, delta.Moved)
	assert.True(t, r.ResolveIndexPath(items[5]).IsNothing())
	q, _ := r.ResolveIndexPath(items[6]).Get()
	assert.Equal(t, IndexPath{0, 5}, q)
}

func TestMoveSectionKeepsIdentity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	tx, _ := r.Begin()
	ids, err := tx.InsertSections(0, SectionInfo{"a"}, SectionInfo{"b"}, SectionInfo{"c"})
	require.NoError(t, err)
	_, err = tx.InsertItems(2, 0, 4)
	require.NoError(t, err)
	_, _ = tx.End()
	_, _, _ = r.CommitNext()
	//
	tx, _ = r.Begin()
	require.NoError(t, tx.MoveSection(2, 0))
	_, _ = tx.End()
	delta, _, err := r.CommitNext()
	require.NoError(t, err)
	i, ok := r.SectionIndex(ids[2]).Get()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, ids[2], r.Committed().Section(0).ID)
	assert.Equal(t, "c", r.Committed().Section(0).DebugName)
	assert.Equal(t, 4, r.Committed().ItemCount(0))
	require.Len(t, delta.MovedSections, 1)
	assert.Equal(t, SectionMove{ID: ids[2], From: 2, To: 0}, delta.MovedSections[0])
	assert.Empty(t, delta.Moved)
	assert.Empty(t, delta.Inserted)
}

func TestCommitsAreFIFO(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	for i := 0; i < 3; i++ {
		insertItems(t, r, 1)
	}
	require.Equal(t, 3, r.PendingCount())
	head, ok := r.Head().Get()
	require.True(t, ok)
	assert.Equal(t, uint64(1), head.Generation)
	for gen := uint64(1); gen <= 3; gen++ {
		delta, ok, err := r.CommitNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, gen, delta.To)
		assert.Equal(t, gen, r.Committed().Generation)
		assert.Equal(t, int(gen), r.Committed().ItemCount(0))
	}
	_, ok, err := r.CommitNext()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReloadReplacesIdentity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 3)
	_, _, _ = r.CommitNext()
	tx, _ := r.Begin()
	fresh, err := tx.ReloadItems(IndexPath{0, 1})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.NotEqual(t, items[1], fresh[0])
	p, _ := tx.End()
	assert.Equal(t, fresh, p.Inserted)
	assert.Equal(t, []ItemID{items[1]}, p.Deleted)
	delta, _, _ := r.CommitNext()
	assert.Equal(t, []IndexPath{{0, 1}}, delta.Deleted)
	assert.Equal(t, []IndexPath{{0, 1}}, delta.Inserted)
	assert.True(t, r.ResolveIndexPath(items[1]).IsNothing())
}

func TestReloadDuplicatePaths(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 4)
	_, _, _ = r.CommitNext()
	tx, _ := r.Begin()
	fresh, err := tx.ReloadItems(IndexPath{0, 2}, IndexPath{0, 0}, IndexPath{0, 2})
	require.NoError(t, err)
	require.Len(t, fresh, 3)
	assert.Equal(t, fresh[0], fresh[2], "same path must get the same identity")
	assert.NotEqual(t, fresh[0], fresh[1])
	p, _ := tx.End()
	assert.ElementsMatch(t, []ItemID{fresh[0], fresh[1]}, p.Inserted)
	assert.ElementsMatch(t, []ItemID{items[0], items[2]}, p.Deleted)
	id, _ := r.Editing().ItemAt(IndexPath{0, 2})
	assert.Equal(t, fresh[2], id)
	assert.Equal(t, 4, r.Editing().ItemCountTotal())
}

func TestMoveItemDelta(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 5)
	_, _, _ = r.CommitNext()
	tx, _ := r.Begin()
	require.NoError(t, tx.MoveItem(IndexPath{0, 4}, IndexPath{0, 0}))
	_, err := tx.InsertItems(0, 5, 1)
	require.NoError(t, err)
	_, _ = tx.End()
	delta, _, _ := r.CommitNext()
	require.Len(t, delta.Moved, 1)
	assert.Equal(t, ItemMove{ID: items[4], From: IndexPath{0, 4}, To: IndexPath{0, 0}}, delta.Moved[0])
	assert.Equal(t, []IndexPath{{0, 5}}, delta.Inserted)
	assert.Empty(t, delta.Deleted)
}

func TestSupplementaryAndEntry(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	tx, _ := r.Begin()
	sids, _ := tx.InsertSections(0, SectionInfo{"news"})
	hdr, err := tx.SetSupplementary(0, "header", 1)
	require.NoError(t, err)
	items, _ := tx.InsertItems(0, 0, 2)
	_, _ = tx.End()
	entry, ok := r.Entry(sids[0]).Get()
	require.True(t, ok)
	assert.Equal(t, "news", entry.DebugName)
	assert.Equal(t, items, entry.EditingItems)
	assert.Nil(t, entry.CommittedItems)
	_, _, _ = r.CommitNext()
	entry, _ = r.Entry(sids[0]).Get()
	assert.Equal(t, items, entry.CommittedItems)
	sp, ok := r.ResolveSupplementaryPath(hdr[0]).Get()
	require.True(t, ok)
	assert.Equal(t, SupplementaryPath{Kind: "header", IndexPath: IndexPath{0, 0}}, sp)
	assert.Equal(t, []string{"header"}, r.Committed().Kinds())
	t.Log(r.Committed().Dump())
	assert.True(t, r.Entry(SectionID(99)).IsNothing())
}

func TestLiveItemsSpansGenerations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	items := insertItems(t, r, 2)
	_, _, _ = r.CommitNext()
	tx, _ := r.Begin()
	require.NoError(t, tx.DeleteItems(IndexPath{0, 0}))
	_, _ = tx.End()
	live := r.LiveItems()
	assert.Contains(t, live, items[0]) // still committed
	_, _, _ = r.CommitNext()
	live = r.LiveItems()
	assert.NotContains(t, live, items[0])
	assert.Contains(t, live, items[1])
}

func TestIndexOutOfRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.section")
	defer teardown()
	//
	r := NewRegistry()
	tx, _ := r.Begin()
	_, err := tx.InsertItems(0, 0, 1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, _ = tx.InsertSections(0, SectionInfo{})
	assert.True(t, errors.Is(tx.DeleteItems(IndexPath{0, 0}), ErrIndexOutOfRange))
	assert.True(t, errors.Is(tx.MoveSection(0, 1), ErrIndexOutOfRange))
	assert.True(t, errors.Is(tx.DeleteSections(3), ErrIndexOutOfRange))
	// failed calls leave the editing snapshot untouched
	assert.Equal(t, 1, r.Editing().SectionCount())
}
