package vector

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/errs"
	"github.com/hyperjump/vexus/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowOrErr struct {
	row storage.Row
	err error
}

func rowsOf(items ...rowOrErr) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) {
		for _, it := range items {
			if !yield(it.row, it.err) {
				return
			}
		}
	}
}

func row(id int64, v ...float32) rowOrErr {
	return rowOrErr{row: storage.Row{ID: id, Vector: codec.Encode(v)}}
}

func TestStore_Recover(t *testing.T) {
	s := memoryStore(t, 3, 1)
	res, err := s.Recover(context.Background(), rowsOf(
		row(1, 1, 0, 0),
		row(2, 0, 1, 0),
		row(3, 0, 1),
		rowOrErr{err: errors.New("bad row")},
		row(4, 0, 0, 1),
		row(5, 1, 1, 1, 1),
	))
	require.NoError(t, err)
	assert.Equal(t, RecoverResult{Inserted: 3, Skipped: 2, Failed: 1}, res)

	st, _ := s.Stats()
	assert.Equal(t, 3, st.Count)
	assert.LessOrEqual(t, st.Count, st.Capacity)

	results, err := s.Search(codec.Encode([]float32{0, 0, 1}), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), results[0].ID)
}

func TestStore_RecoverRejectedRows(t *testing.T) {
	s, fake := newFakeStore(t, 2, 8)
	defer s.Close()
	fake.failKey = 2

	res, err := s.Recover(context.Background(), rowsOf(row(1, 1, 0), row(2, 0, 1), row(3, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, RecoverResult{Inserted: 2, Failed: 1}, res)
}

func TestStore_RecoverCancelled(t *testing.T) {
	s := memoryStore(t, 2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Recover(ctx, rowsOf(row(1, 1, 0)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Inserted)
}

func TestStore_RecoverClosedReleasesRows(t *testing.T) {
	s := memoryStore(t, 2, 8)
	require.NoError(t, s.Close())

	pulled := 0
	rows := func(yield func(storage.Row, error) bool) {
		pulled++
		yield(storage.Row{ID: 1, Vector: codec.Encode([]float32{1, 0})}, nil)
	}
	_, err := s.Recover(context.Background(), rows)
	assert.ErrorIs(t, err, errs.ErrLock)
	assert.Equal(t, 1, pulled, "the sequence is started once so its cursor is closed")
}
