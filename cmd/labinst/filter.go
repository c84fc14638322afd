// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"fmt"

	"github.com/gotmc/labinst/instrument/kurios"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func (a *app) filterCmd() *cobra.Command {
	filter := &cobra.Command{
		Use:   "filter",
		Short: "Thorlabs Kurios tunable filter",
	}
	withFilter := func(cmd *cobra.Command, fn func(*kurios.Filter) error) (err error) {
		resource, opts, err := a.open(cmd, "filter")
		if err != nil {
			return err
		}
		k, err := kurios.Open(resource, opts...)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, k.Close()) }()
		return fn(k)
	}

	var (
		wavelength float64
		bandwidth  string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the wavelength and/or bandwidth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var bw kurios.Bandwidth
			if cmd.Flags().Changed("bandwidth") {
				var err error
				if bw, err = kurios.ParseBandwidth(bandwidth); err != nil {
					return err
				}
			}
			return withFilter(cmd, func(k *kurios.Filter) error {
				if cmd.Flags().Changed("wavelength") {
					if err := k.SetWavelength(wavelength); err != nil {
						return err
					}
				}
				if bw != 0 {
					return k.SetBandwidth(bw)
				}
				return nil
			})
		},
	}
	set.Flags().Float64VarP(&wavelength, "wavelength", "w", 0, "center wavelength in nm")
	set.Flags().StringVarP(&bandwidth, "bandwidth", "b", "", "BLACK, WIDE, MEDIUM or NARROW")

	temp := &cobra.Command{
		Use:   "temp",
		Short: "Print the filter temperature in degrees Celsius",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withFilter(cmd, func(k *kurios.Filter) error {
				t, err := k.Temperature()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatFloat(t))
				return nil
			})
		},
	}

	filter.AddCommand(set, temp)
	return filter
}
