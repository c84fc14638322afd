// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package instrument

import (
	"fmt"
	"io"
)

// Method is one catalog line.
type Method struct {
	Signature string
	Summary   string
}

// Description describes a driver for the catalog.
type Description struct {
	Name    string
	Package string
	Methods []Method
}

// PrintCatalog writes every description with its methods to w.
func PrintCatalog(w io.Writer, descs []Description) error {
	for _, d := range descs {
		if _, err := fmt.Fprintf(w, "%s (%s)\n", d.Name, d.Package); err != nil {
			return err
		}
		for _, m := range d.Methods {
			if _, err := fmt.Fprintf(w, "  %s\n      %s\n", m.Signature, m.Summary); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
