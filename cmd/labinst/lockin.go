// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"fmt"

	"github.com/gotmc/labinst/instrument/sr830"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func (a *app) lockinCmd() *cobra.Command {
	var xy bool
	lockin := &cobra.Command{
		Use:   "lockin",
		Short: "Stanford Research SR830 lock-in amplifier",
	}
	withLockIn := func(cmd *cobra.Command, fn func(*sr830.LockIn) error) (err error) {
		resource, opts, err := a.open(cmd, "lockin")
		if err != nil {
			return err
		}
		l, err := sr830.Open(resource, opts...)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, l.Close()) }()
		return fn(l)
	}

	measure := &cobra.Command{
		Use:   "measure",
		Short: "Print R,theta (or X,Y with --xy)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLockIn(cmd, func(l *sr830.LockIn) error {
				v, err := l.Measure(xy)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s,%s\n", formatFloat(v[0]), formatFloat(v[1]))
				return nil
			})
		},
	}
	measure.Flags().BoolVar(&xy, "xy", false, "measure X and Y instead of R and theta")

	autoscale := &cobra.Command{
		Use:   "autoscale",
		Short: "Adjust the sensitivity to the signal and print R,theta,sensitivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLockIn(cmd, func(l *sr830.LockIn) error {
				r, theta, err := l.AutoScale()
				if err != nil {
					return err
				}
				i, err := l.Scale()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s,%s,%s\n",
					formatFloat(r), formatFloat(theta), formatFloat(sr830.Sensitivities[i]))
				return nil
			})
		},
	}

	lockin.AddCommand(measure, autoscale)
	return lockin
}
