// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

//go:build !linux

package labinst

import (
	"errors"
	"io"
	"time"
)

func openUSBTMC(Address, time.Duration) (io.ReadWriteCloser, error) {
	return nil, errors.New("USB resources need the linux usbtmc driver; build with -tags visa to use NI-VISA")
}
