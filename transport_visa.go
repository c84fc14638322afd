// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

//go:build visa

package labinst

import (
	"fmt"
	"io"
	"strings"

	"github.com/jpoirier/visa"
)

// visaConn is a session opened through the NI-VISA library.
type visaConn struct {
	rm  visa.Session
	obj visa.Object
}

func dial(r *Resource) (io.ReadWriteCloser, error) {
	rm, status := visa.OpenDefaultRM()
	if status != visa.SUCCESS {
		return nil, fmt.Errorf("opening VISA resource manager: status %d", status)
	}
	obj, status := rm.Open(r.addr.String(), uint32(visa.NULL), uint32(r.timeout.Milliseconds()))
	if status != visa.SUCCESS {
		desc, _ := obj.StatusDesc(status)
		rm.Close()
		return nil, fmt.Errorf("VISA open: %d, %s", status, desc)
	}
	return &visaConn{rm: rm, obj: obj}, nil
}

func (c *visaConn) Write(p []byte) (int, error) {
	n, status := c.obj.Write(p, uint32(len(p)))
	if status != visa.SUCCESS {
		desc, _ := c.obj.StatusDesc(status)
		return int(n), fmt.Errorf("VISA write: %d, %s", status, desc)
	}
	return int(n), nil
}

// Read treats any status as success when data arrived; VISA reports a full
// buffer or a termination character with warning codes.
func (c *visaConn) Read(p []byte) (int, error) {
	buf, n, status := c.obj.Read(uint32(len(p)))
	copy(p, buf[:n])
	if n > 0 || status == visa.SUCCESS {
		return int(n), nil
	}
	desc, _ := c.obj.StatusDesc(status)
	err := fmt.Errorf("VISA read: %d, %s", status, desc)
	if strings.Contains(strings.ToLower(desc), "timeout") {
		return 0, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return 0, err
}

func (c *visaConn) Close() error {
	c.obj.Close()
	c.rm.Close()
	return nil
}
