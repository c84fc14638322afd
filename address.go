// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// ErrInvalidAddress is wrapped by every error returned from ParseAddress.
var ErrInvalidAddress = errors.New("invalid resource address")

// Interface identifies the hardware interface named by a resource address.
type Interface int

// Supported interfaces.
const (
	GPIB Interface = iota
	TCPIP
	ASRL
	USB
)

var interfaceDesc = map[Interface]string{
	GPIB:  "GPIB",
	TCPIP: "TCPIP",
	ASRL:  "ASRL",
	USB:   "USB",
}

func (i Interface) String() string {
	return interfaceDesc[i]
}

// DefaultSocketPort is the SCPI-raw port used for TCPIP::INSTR addresses.
const DefaultSocketPort = 5025

// Address is a parsed VISA resource string.
type Address struct {
	Interface Interface
	Board     int

	// GPIB. Secondary is -1 when not given.
	Primary   int
	Secondary int

	// TCPIP. Socket is true for ::SOCKET resources.
	Host   string
	Port   int
	Socket bool

	// ASRL
	Device string

	// USB. USBInterface is -1 when not given.
	VendorID     uint16
	ProductID    uint16
	Serial       string
	USBInterface int
}

// ParseAddress parses a VISA resource string such as GPIB0::8::INSTR,
// TCPIP0::192.168.1.5::5025::SOCKET, ASRL/dev/ttyUSB0::INSTR or
// USB0::0x0699::0x0363::C102223::INSTR.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	if len(parts) < 2 {
		return Address{}, fmt.Errorf("%w %q: missing fields", ErrInvalidAddress, s)
	}
	suffix := strings.ToUpper(parts[len(parts)-1])
	head := parts[0]
	fields := parts[1 : len(parts)-1]
	upper := strings.ToUpper(head)

	var (
		a   Address
		err error
	)
	switch {
	case strings.HasPrefix(upper, "GPIB"):
		a, err = parseGPIB(head[4:], fields, suffix)
	case strings.HasPrefix(upper, "TCPIP"):
		a, err = parseTCPIP(head[5:], fields, suffix)
	case strings.HasPrefix(upper, "ASRL"):
		a, err = parseASRL(head[4:], fields, suffix)
	case strings.HasPrefix(upper, "USB"):
		a, err = parseUSB(head[3:], fields, suffix)
	default:
		err = fmt.Errorf("unknown interface %q", head)
	}
	if err != nil {
		return Address{}, fmt.Errorf("%w %q: %s", ErrInvalidAddress, s, err)
	}
	return a, nil
}

func parseBoard(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad board number %q", s)
	}
	return n, nil
}

func parseGPIB(board string, fields []string, suffix string) (Address, error) {
	a := Address{Interface: GPIB, Secondary: -1}
	var err error
	if suffix != "INSTR" {
		return a, fmt.Errorf("GPIB resources must end in INSTR")
	}
	if a.Board, err = parseBoard(board); err != nil {
		return a, err
	}
	if len(fields) < 1 || len(fields) > 2 {
		return a, fmt.Errorf("want primary and optional secondary address")
	}
	if a.Primary, err = strconv.Atoi(fields[0]); err != nil {
		return a, fmt.Errorf("bad primary address %q", fields[0])
	}
	if !IsPrimaryAddressValid(a.Primary) {
		return a, fmt.Errorf("primary address %d (must be 0-30)", a.Primary)
	}
	if len(fields) == 2 {
		if a.Secondary, err = strconv.Atoi(fields[1]); err != nil {
			return a, fmt.Errorf("bad secondary address %q", fields[1])
		}
		if !IsSecondaryAddressValid(a.Secondary) {
			return a, fmt.Errorf("secondary address %d (must be 96-126)", a.Secondary)
		}
	}
	return a, nil
}

func parseTCPIP(board string, fields []string, suffix string) (Address, error) {
	a := Address{Interface: TCPIP, Port: DefaultSocketPort}
	var err error
	if a.Board, err = parseBoard(board); err != nil {
		return a, err
	}
	if len(fields) == 0 || fields[0] == "" {
		return a, fmt.Errorf("missing host")
	}
	a.Host = fields[0]
	switch suffix {
	case "SOCKET":
		if len(fields) != 2 {
			return a, fmt.Errorf("SOCKET resources need host and port")
		}
		a.Socket = true
		if a.Port, err = strconv.Atoi(fields[1]); err != nil || a.Port <= 0 || a.Port > 65535 {
			return a, fmt.Errorf("bad port %q", fields[1])
		}
	case "INSTR":
		// The LAN device name (inst0, hislip0, ...) is accepted but the
		// connection is always SCPI-raw on DefaultSocketPort.
		if len(fields) > 2 {
			return a, fmt.Errorf("too many fields")
		}
	default:
		return a, fmt.Errorf("TCPIP resources must end in INSTR or SOCKET")
	}
	return a, nil
}

func parseASRL(dev string, fields []string, suffix string) (Address, error) {
	a := Address{Interface: ASRL}
	if suffix != "INSTR" {
		return a, fmt.Errorf("ASRL resources must end in INSTR")
	}
	if len(fields) != 0 {
		return a, fmt.Errorf("too many fields")
	}
	if dev == "" {
		return a, fmt.Errorf("missing serial device")
	}
	if n, err := strconv.Atoi(dev); err == nil {
		if n < 1 {
			return a, fmt.Errorf("bad port number %d", n)
		}
		a.Board = n
		if runtime.GOOS == "windows" {
			a.Device = fmt.Sprintf("COM%d", n)
		} else {
			a.Device = fmt.Sprintf("/dev/ttyS%d", n-1)
		}
		return a, nil
	}
	a.Device = dev
	return a, nil
}

func parseUSB(board string, fields []string, suffix string) (Address, error) {
	a := Address{Interface: USB, USBInterface: -1}
	var err error
	if suffix != "INSTR" {
		return a, fmt.Errorf("USB resources must end in INSTR")
	}
	if a.Board, err = parseBoard(board); err != nil {
		return a, err
	}
	if len(fields) < 3 || len(fields) > 4 {
		return a, fmt.Errorf("want vendor, product, serial and optional interface")
	}
	vid, err := strconv.ParseUint(fields[0], 0, 16)
	if err != nil {
		return a, fmt.Errorf("bad vendor id %q", fields[0])
	}
	pid, err := strconv.ParseUint(fields[1], 0, 16)
	if err != nil {
		return a, fmt.Errorf("bad product id %q", fields[1])
	}
	a.VendorID, a.ProductID = uint16(vid), uint16(pid)
	a.Serial = fields[2]
	if len(fields) == 4 {
		if a.USBInterface, err = strconv.Atoi(fields[3]); err != nil || a.USBInterface < 0 {
			return a, fmt.Errorf("bad interface number %q", fields[3])
		}
	}
	return a, nil
}

// String returns the canonical resource string.
func (a Address) String() string {
	switch a.Interface {
	case GPIB:
		if a.Secondary >= 0 {
			return fmt.Sprintf("GPIB%d::%d::%d::INSTR", a.Board, a.Primary, a.Secondary)
		}
		return fmt.Sprintf("GPIB%d::%d::INSTR", a.Board, a.Primary)
	case TCPIP:
		if a.Socket {
			return fmt.Sprintf("TCPIP%d::%s::%d::SOCKET", a.Board, a.Host, a.Port)
		}
		return fmt.Sprintf("TCPIP%d::%s::INSTR", a.Board, a.Host)
	case ASRL:
		return fmt.Sprintf("ASRL%s::INSTR", a.Device)
	case USB:
		if a.USBInterface >= 0 {
			return fmt.Sprintf("USB%d::0x%04X::0x%04X::%s::%d::INSTR",
				a.Board, a.VendorID, a.ProductID, a.Serial, a.USBInterface)
		}
		return fmt.Sprintf("USB%d::0x%04X::0x%04X::%s::INSTR",
			a.Board, a.VendorID, a.ProductID, a.Serial)
	}
	return "unknown"
}

// IsPrimaryAddressValid checks that the primary GPIB address is between 0 and
// 30, inclusive.
func IsPrimaryAddressValid(addr int) bool {
	return addr >= 0 && addr <= 30
}

// IsSecondaryAddressValid checks that the secondary GPIB address is between 96
// and 126, inclusive.
func IsSecondaryAddressValid(addr int) bool {
	return addr >= 96 && addr <= 126
}
