package cmdlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTranscript(buf *bytes.Buffer) *Transcript {
	tr := New(buf, "GPIB0::8::INSTR")
	tr.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return tr
}

func TestIsAscii(t *testing.T) {
	assert.True(t, isAscii("ID TEK/7912AD,V77.1;\r\n"))
	assert.False(t, isAscii("\x00\x01"))
	assert.False(t, isAscii("\x7f\x80\xfe"))
}

func TestTranscript(t *testing.T) {
	var buf bytes.Buffer
	tr := newTestTranscript(&buf)

	tr.Command("LOCL 2")
	tr.Response("SENS ?", []byte("22\n"))
	tr.Response("CURV?", []byte{0x01, 0x02, 0x7f})
	tr.Response("CURV?", bytes.Repeat([]byte{0x80}, 40))
	tr.Response("X?", []byte{0xff})
	tr.Error("FREQ?", errors.New("timeout"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		`12:00:00.000000 GPIB0::8::INSTR LOCL 2()`,
		`12:00:00.000000 GPIB0::8::INSTR SENS ?: [2] "22"`,
		`12:00:00.000000 GPIB0::8::INSTR CURV?: [3] "\x01\x02\x7f" (01 02 7f)`,
		`12:00:00.000000 GPIB0::8::INSTR CURV?: [40] ` + strings.TrimSpace(strings.Repeat("80 ", 40)),
		`12:00:00.000000 GPIB0::8::INSTR X?: <no response>`,
		`12:00:00.000000 GPIB0::8::INSTR FREQ?: error timeout`,
	}
	assert.Equal(t, want, lines)
}
