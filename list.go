// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"strconv"

	"github.com/gotmc/labinst/lib/find"
	"go.uber.org/multierr"
)

// ListResources returns resource strings for the serial ports and usbtmc
// instruments attached to this machine. GPIB instruments behind a Prologix
// adapter cannot be enumerated and are not listed.
func ListResources() ([]string, error) {
	var res []string
	ports, perr := find.Ports()
	for _, p := range ports {
		res = append(res, "ASRL"+p.Dev+"::INSTR")
	}
	devs, uerr := find.AllUsbtmc()
	for _, d := range devs {
		res = append(res, usbResource(d))
	}
	return res, multierr.Append(perr, uerr)
}

func usbResource(d find.Usbtty) string {
	vid, _ := strconv.ParseUint(d.IDv, 16, 16)
	pid, _ := strconv.ParseUint(d.IDp, 16, 16)
	a := Address{
		Interface:    USB,
		VendorID:     uint16(vid),
		ProductID:    uint16(pid),
		Serial:       d.Serial,
		USBInterface: -1,
	}
	if d.Interface > 0 {
		a.USBInterface = d.Interface
	}
	return a.String()
}
