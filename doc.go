// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

/*
Package labinst opens message-based connections to laboratory instruments
named by VISA resource strings and exchanges SCPI commands with them.

	res, err := labinst.Open("GPIB0::8::INSTR", labinst.WithTimeout(3*time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer res.Close()
	idn, err := res.Query("*IDN?")

GPIB resources go through a Prologix GPIB-USB controller, TCPIP resources
through a raw socket, ASRL resources through a serial port and USB resources
through the Linux usbtmc driver. Built with the visa tag, every resource is
opened through NI-VISA instead.

Drivers for individual instruments live under instrument/.
*/
package labinst
