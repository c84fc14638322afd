package fakeinst

import (
	"errors"
	"testing"

	"github.com/gotmc/labinst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedResponses(t *testing.T) {
	f := New().On("SENS ?", "17", "18").On("SNAP? 1, 2", "1e-3,2e-3")
	require.NoError(t, f.Command("SENS %d", 17))

	for _, want := range []string{"17", "18", "18"} {
		got, err := f.Query("SENS ?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	vals, err := f.QueryFloats("SNAP? 1, 2", ",")
	require.NoError(t, err)
	assert.Equal(t, []float64{1e-3, 2e-3}, vals)

	_, err = f.Query("OFLT ?")
	assert.ErrorIs(t, err, labinst.ErrTimeout)
	assert.Equal(t, []string{"SENS 17", "SENS ?", "SENS ?", "SENS ?", "SNAP? 1, 2", "OFLT ?"}, f.Sent)
}

func TestBlocksFailuresAndClose(t *testing.T) {
	boom := errors.New("boom")
	f := New().OnBlock("CURV?", []byte{1, 2}).Fail("LOC", boom)

	data, err := f.QueryBlock("CURV?")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
	assert.ErrorIs(t, f.Command("LOC"), boom)

	f.Reset()
	assert.Empty(t, f.Sent)
	f.CloseErr = boom
	assert.ErrorIs(t, f.Close(), boom)
	assert.ErrorIs(t, f.Command("*CLS"), labinst.ErrClosed)
	assert.Empty(t, f.Sent)
}
