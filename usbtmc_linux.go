// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/gotmc/labinst/lib/find"
	"golang.org/x/sys/unix"
)

// USBTMC_IOCTL_SET_TIMEOUT from linux/usb/tmc.h.
const usbtmcIoctlSetTimeout = 0x40045b0a

// The kernel rejects timeouts below 100 ms.
const usbtmcMinTimeout = 100 * time.Millisecond

// usbtmcConn is an open /dev/usbtmcN node. Each read returns at most one
// response message.
type usbtmcConn struct {
	*os.File
}

func openUSBTMC(a Address, timeout time.Duration) (io.ReadWriteCloser, error) {
	dev, err := find.Usbtmc(a.VendorID, a.ProductID, a.Serial, a.USBInterface)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		if timeout < usbtmcMinTimeout {
			timeout = usbtmcMinTimeout
		}
		if err := unix.IoctlSetPointerInt(int(f.Fd()), usbtmcIoctlSetTimeout, int(timeout.Milliseconds())); err != nil {
			f.Close()
			return nil, fmt.Errorf("setting usbtmc timeout on %s: %w", dev, err)
		}
	}
	return &usbtmcConn{File: f}, nil
}

func (c *usbtmcConn) Read(p []byte) (int, error) {
	n, err := c.File.Read(p)
	if errors.Is(err, syscall.ETIMEDOUT) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}
