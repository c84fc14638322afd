// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"fmt"

	"github.com/gotmc/labinst/instrument/tds1002b"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func (a *app) openScope(cmd *cobra.Command, signed bool) (*tds1002b.Scope, error) {
	resource, opts, err := a.open(cmd, "scope")
	if err != nil {
		return nil, err
	}
	sc, err := tds1002b.Open(resource, opts...)
	if err != nil || !signed {
		return sc, err
	}
	if err := sc.SetEncoding(tds1002b.Signed); err != nil {
		return nil, multierr.Append(err, sc.Close())
	}
	return sc, nil
}

func (a *app) scopeCmd() *cobra.Command {
	var (
		channel   int
		configure bool
		unlock    bool
		signed    bool
	)
	scope := &cobra.Command{
		Use:   "scope",
		Short: "Tektronix TDS1002B oscilloscope",
	}
	scope.PersistentFlags().IntVarP(&channel, "channel", "c", 1, "channel (1 or 2)")
	scope.PersistentFlags().BoolVar(&signed, "signed", false, "transfer signed (RIB) curve data")

	read := &cobra.Command{
		Use:   "read",
		Short: "Transfer a waveform as CSV (time, voltage)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			sc, err := a.openScope(cmd, signed)
			if err != nil {
				return err
			}
			defer func() {
				if unlock {
					err = multierr.Append(err, sc.Unlock())
				}
				err = multierr.Append(err, sc.Close())
			}()
			if configure {
				if err := sc.Configure(); err != nil {
					return err
				}
			}
			w, err := sc.ReadData(channel)
			if err != nil {
				return err
			}
			rows := make([][]string, len(w.Volts))
			for i := range rows {
				rows[i] = []string{formatFloat(w.Time[i]), formatFloat(w.Volts[i])}
			}
			return writeCSV(cmd.OutOrStdout(), []string{"time", "voltage"}, rows)
		},
	}
	read.Flags().BoolVar(&configure, "configure", false, "apply 20 mV/div and 1 ms/div first")
	read.Flags().BoolVar(&unlock, "unlock", false, "unlock the front panel when done")

	rng := &cobra.Command{
		Use:   "range",
		Short: "Print the voltage span of the screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			sc, err := a.openScope(cmd, signed)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, sc.Close()) }()
			r, err := sc.Range(channel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s,%s\n", formatFloat(r[0]), formatFloat(r[1]))
			return nil
		},
	}

	scope.AddCommand(read, rng)
	return scope
}
