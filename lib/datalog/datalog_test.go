package datalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "scans.db")
	s, err := Open(path)
	require.NoError(t, err)

	t0 := time.Date(2024, 3, 7, 10, 15, 30, 500000000, time.UTC)
	t1 := t0.Add(time.Second)
	require.NoError(t, s.SaveScan(ctx, []Reading{
		{Channel: 101, Value: 23.45, Time: t0},
		{Channel: 102, Value: -1e-3, Time: t0.Add(250 * time.Millisecond)},
	}))
	require.NoError(t, s.SaveScan(ctx, []Reading{
		{Channel: 101, Value: 23.5, Time: t1},
	}))

	got, err := s.Readings(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, []Reading{
		{Channel: 101, Value: 23.45, Time: t0},
		{Channel: 101, Value: 23.5, Time: t1},
	}, got)

	all, err := s.Readings(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 102, all[1].Channel)
	require.NoError(t, s.Close())

	// reopening keeps the data
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	all, err = s.Readings(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReadingsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Readings(context.Background(), 105)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveScanCanceled(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.SaveScan(ctx, []Reading{{Channel: 101, Value: 1, Time: time.Now()}}))
}

func TestReadingsOrderWithinSecond(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "order.db"))
	require.NoError(t, err)
	defer s.Close()

	whole := time.Date(2024, 3, 7, 10, 15, 30, 0, time.UTC)
	require.NoError(t, s.SaveScan(ctx, []Reading{
		{Channel: 101, Value: 1, Time: whole},
		{Channel: 102, Value: 2, Time: whole.Add(200 * time.Millisecond)},
		{Channel: 103, Value: 3, Time: whole.Add(150 * time.Millisecond)},
		{Channel: 104, Value: 4, Time: whole.Add(100 * time.Millisecond)},
	}))

	got, err := s.Readings(ctx, 0)
	require.NoError(t, err)
	var channels []int
	for _, r := range got {
		channels = append(channels, r.Channel)
	}
	assert.Equal(t, []int{101, 104, 103, 102}, channels)
	assert.Equal(t, whole, got[0].Time)
}
