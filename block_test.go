// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBlock(t *testing.T) {
	testCases := []struct {
		name  string
		given string
		data  string
		rest  string
	}{
		{"definite", "#15hello\nnext", "hello", "next"},
		{"header skipped", ":CURVE #13\x00\x7f\xff\n", "\x00\x7f\xff", ""},
		{"embedded terminator", "#14a\nb\n\n", "a\nb\n", ""},
		{"no trailing terminator", "#12abX", "ab", "X"},
		{"indefinite", "#0raw bytes\nnext", "raw bytes", "next"},
		{"multi digit length", "#210abcdefghij\n", "abcdefghij", ""},
		{"crlf terminator", "#13abc\r\nnext", "abc", "next"},
		{"lone cr", "#13abc\rnext", "abc", "next"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			br := bufio.NewReader(strings.NewReader(tc.given))
			data, err := ReadBlock(br, '\n')
			require.NoError(t, err)
			assert.Equal(t, []byte(tc.data), data)
			rest, _ := io.ReadAll(br)
			assert.Equal(t, tc.rest, string(rest))
		})
	}
}

func TestReadBlockMalformed(t *testing.T) {
	for _, s := range []string{
		"1,2,3\n",
		"#x12\n",
		"#2a5hello\n",
		"#15hel",
	} {
		_, err := ReadBlock(bufio.NewReader(strings.NewReader(s)), '\n')
		assert.ErrorIs(t, err, ErrBlock, "%q", s)
	}
}
