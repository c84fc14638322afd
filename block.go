// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrBlock is wrapped by errors for malformed IEEE 488.2 binary blocks.
var ErrBlock = errors.New("malformed binary block")

// ReadBlock reads an IEEE 488.2 binary block from br. Any response header
// before the '#' is skipped. Definite blocks (#<n><length><data>) are
// followed by an optional term, possibly preceded by '\r', which is
// consumed; indefinite blocks (#0) run until term.
func ReadBlock(br *bufio.Reader, term byte) ([]byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '#' {
			break
		}
		if b == term {
			return nil, fmt.Errorf("%w: response ended before '#'", ErrBlock)
		}
	}
	d, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if d < '0' || d > '9' {
		return nil, fmt.Errorf("%w: bad length digit count %q", ErrBlock, d)
	}
	n := int(d - '0')
	if n == 0 {
		data, err := br.ReadBytes(term)
		if err != nil {
			return nil, err
		}
		return data[:len(data)-1], nil
	}
	digits := make([]byte, n)
	if _, err := io.ReadFull(br, digits); err != nil {
		return nil, err
	}
	length, err := strconv.Atoi(string(digits))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: bad length %q", ErrBlock, digits)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("%w: short block: %v", ErrBlock, err)
	}
	if term != '\r' {
		if next, err := br.Peek(1); err == nil && next[0] == '\r' {
			br.ReadByte()
		}
	}
	if next, err := br.Peek(1); err == nil && next[0] == term {
		br.ReadByte()
	}
	return data, nil
}
