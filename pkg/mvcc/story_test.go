package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tur/pkg/tuple"
)

func TestStoryLinkAboveAndUnlink(t *testing.T) {
	space := newTestSpace(true)
	bottom := newStory(space, row1(1))
	top := newStory(space, row1(2))

	top.linkAbove(0, bottom)
	require.Same(t, bottom, top.links[0].older)
	require.Same(t, top, bottom.links[0].newer)
	require.True(t, top.links[0].inIndex)
	require.False(t, bottom.links[0].inIndex)
	require.Same(t, top, top.top(0))
	require.Same(t, top, bottom.top(0))

	top.unlinkFromChain(0)
	require.Nil(t, bottom.links[0].newer)
	require.True(t, bottom.links[0].inIndex)
}

func TestStoryCommittedAndDeleted(t *testing.T) {
	space := newTestSpace(true)
	s := newStory(space, row1(1))
	stmt := &Statement{newStory: s}
	s.addStmt = stmt
	require.False(t, s.committed())

	s.addPSN = 7
	require.True(t, s.committed())
	require.False(t, s.deleted())

	s.delPSN = 9
	require.True(t, s.deleted())
}

func row1(id int64) *tuple.Tuple { return tuple.New(row(id, "x")) }
