// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"fmt"

	"github.com/gotmc/labinst/instrument/afg3021b"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func (a *app) fgenCmd() *cobra.Command {
	var (
		freq, ampl float64
		fn         string
		output     bool
	)
	fgen := &cobra.Command{
		Use:   "fgen",
		Short: "Tektronix AFG3021B function generator",
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the given settings and print frequency and amplitude",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var shape afg3021b.Function
			if cmd.Flags().Changed("func") {
				if shape, err = afg3021b.ParseFunction(fn); err != nil {
					return err
				}
			}
			resource, opts, err := a.open(cmd, "fgen")
			if err != nil {
				return err
			}
			g, err := afg3021b.Open(resource, opts...)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, g.Close()) }()

			if shape != "" {
				if err := g.SetFunction(shape); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("freq") {
				if err := g.SetFrequency(freq); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("ampl") {
				if err := g.SetAmplitude(ampl); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("output") {
				if err := g.SetOutput(output); err != nil {
					return err
				}
			}
			hz, err := g.Frequency()
			if err != nil {
				return err
			}
			vpp, err := g.Amplitude()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "frequency %s Hz, amplitude %s Vpp\n", formatFloat(hz), formatFloat(vpp))
			return nil
		},
	}
	f := set.Flags()
	f.Float64Var(&freq, "freq", 0, "frequency in Hz")
	f.Float64Var(&ampl, "ampl", 0, "amplitude in Vpp")
	f.StringVar(&fn, "func", "", "waveform: SIN, SQU, RAMP, PULS, NOIS, DC or USER")
	f.BoolVar(&output, "output", true, "output state")
	fgen.AddCommand(set)
	return fgen
}
