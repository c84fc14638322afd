// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

//go:build !visa

package labinst

import (
	"fmt"
	"io"
)

func dial(r *Resource) (io.ReadWriteCloser, error) {
	a := r.addr
	switch a.Interface {
	case TCPIP:
		return dialTCP(a, r.timeout)
	case ASRL:
		return openSerial(a.Device, r.baud, r.timeout)
	case USB:
		return openUSBTMC(a, r.timeout)
	case GPIB:
		return openGPIB(r)
	}
	return nil, fmt.Errorf("unsupported interface %s", a.Interface)
}
