// Package find locates the serial ports and USBTMC device nodes behind
// instrument resources.
package find

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// sysfs is the mount point walked by AllUsbtmc.
var sysfs = "/sys"

type FilterFn func(*Usbtty) bool

// PrologixFilter matches Prologix GPIB-USB controllers, which identify
// themselves through the FTDI product string.
func PrologixFilter(ut *Usbtty) bool {
	return strings.Contains(strings.ToLower(ut.Prod), "prologix")
}

// ArduinoFilter matches AR488 controllers built on an Arduino.
func ArduinoFilter(ut *Usbtty) bool {
	return strings.Contains(ut.Mfg, "Arduino") || strings.Contains(ut.Prod, "Arduino")
}

// GPIBAdapterFilter matches either kind of GPIB adapter.
func GPIBAdapterFilter(ut *Usbtty) bool {
	return PrologixFilter(ut) || ArduinoFilter(ut)
}

func SerialFilter(s string) func(ut *Usbtty) bool {
	return func(ut *Usbtty) bool { return ut.Serial == s }
}

// Find searches for a usb serial device. If filter is not nil,
// it is used to narrow choices down. The first device for which
// it returns true (if any) is chosen.
func Find(filter FilterFn) (string, error) {
	ttys, err := Ports()
	if err != nil {
		return "", err
	}
	return pick(ttys, filter)
}

func pick(ttys Usbttys, filter FilterFn) (string, error) {
	if filter != nil {
		var matched Usbttys
		for i := range ttys {
			if filter(&ttys[i]) {
				matched = Usbttys{ttys[i]}
				break
			}
		}
		ttys = matched
	}

	if len(ttys) == 0 {
		return "", fmt.Errorf("no matching ttys found")
	}
	if len(ttys) == 1 {
		return ttys[0].Dev, nil
	}
	return "", fmt.Errorf("multiple ttys: %s", ttys)
}

type Usbtty struct {
	Dev, Path string
	IDp, IDv  string
	Mfg, Prod string
	Serial    string
	Interface int
	IsUSB     bool
}

func (u Usbtty) String() string {
	return fmt.Sprintf("dev %s path %s pid/vid %s/%s mfg/prod %s/%s serial %s", u.Dev, u.Path, u.IDp, u.IDv, u.Mfg, u.Prod, u.Serial)
}

type Usbttys []Usbtty

func (uts Usbttys) String() string {
	s := make([]string, 0, len(uts))
	for _, ut := range uts {
		s = append(s, ut.String())
	}
	return strings.Join(s, "\n")
}

// Ports lists the serial ports known to the OS, with USB details where the
// platform provides them.
func Ports() (Usbttys, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make(Usbttys, 0, len(details))
	for _, d := range details {
		ports = append(ports, Usbtty{
			Dev:    d.Name,
			IDp:    strings.ToLower(d.PID),
			IDv:    strings.ToLower(d.VID),
			Prod:   d.Product,
			Serial: d.SerialNumber,
			IsUSB:  d.IsUSB,
		})
	}
	return ports, nil
}

// AllUsbtmc finds Linux usbtmc character devices by looking at
// /sys/class/usbmisc and the usb device directories it links to.
func AllUsbtmc() (Usbttys, error) {
	var devs Usbttys
	class := filepath.Join(sysfs, "class", "usbmisc")
	entries, err := os.ReadDir(class)
	if errors.Is(err, fs.ErrNotExist) {
		// usbtmc module not loaded
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "usbtmc") {
			continue
		}
		// we have a symlink like
		// /sys/class/usbmisc/usbtmc0 ->
		// /sys/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/usbmisc/usbtmc0
		path := filepath.Join(class, e.Name())
		abs, err := filepath.EvalSymlinks(path)
		if err != nil {
			continue
		}
		// device points at the usb interface; its parent is the usb device
		// carrying the descriptors.
		intf, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			continue
		}
		idP, idV, mfg, prod, serial, _ := readUsbInfo(filepath.Dir(intf))
		devs = append(devs, Usbtty{
			Dev:       "/dev/" + e.Name(),
			Path:      abs,
			IDp:       idP,
			IDv:       idV,
			Mfg:       mfg,
			Prod:      prod,
			Serial:    serial,
			Interface: readInterfaceNumber(intf),
			IsUSB:     true,
		})
	}
	return devs, nil
}

// Usbtmc returns the device node of the usbtmc instrument with the given ids
// and serial number. A negative intf matches any interface.
func Usbtmc(vid, pid uint16, serial string, intf int) (string, error) {
	devs, err := AllUsbtmc()
	if err != nil {
		return "", err
	}
	for _, d := range devs {
		v, _ := strconv.ParseUint(d.IDv, 16, 16)
		p, _ := strconv.ParseUint(d.IDp, 16, 16)
		if uint16(v) != vid || uint16(p) != pid {
			continue
		}
		if serial != "" && !strings.EqualFold(d.Serial, serial) {
			continue
		}
		if intf >= 0 && d.Interface != intf {
			continue
		}
		return d.Dev, nil
	}
	return "", fmt.Errorf("no usbtmc device %04x:%04x serial %q", vid, pid, serial)
}

func readInterfaceNumber(intf string) int {
	b, err := os.ReadFile(filepath.Join(intf, "bInterfaceNumber"))
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 8)
	if err != nil {
		return 0
	}
	return int(n)
}

// reads prod and vendor ids, and mfg/product/serial strings
//
// returns last error encountered, ignoring os.ErrNotExist.
// errors do not prevent reading additional files or returning data collected.
func readUsbInfo(dev string) (idp, idv, mfg, prod, serial string, err error) {
	read := func(name string) string {
		b, rerr := os.ReadFile(filepath.Join(dev, name))
		if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = rerr
		}
		return strings.TrimSpace(string(b))
	}
	idp = read("idProduct")
	idv = read("idVendor")
	mfg = read("manufacturer")
	prod = read("product")
	serial = read("serial")
	return idp, idv, mfg, prod, serial, err
}
