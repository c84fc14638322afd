// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gotmc/labinst"
	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/instrument/afg3021b"
	"github.com/gotmc/labinst/instrument/agilent34970a"
	"github.com/gotmc/labinst/instrument/kurios"
	"github.com/gotmc/labinst/instrument/sr830"
	"github.com/gotmc/labinst/instrument/tds1002b"
	"github.com/gotmc/labinst/lib/config"
	"github.com/gotmc/labinst/lib/connutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var catalog = []instrument.Description{
	tds1002b.Description,
	agilent34970a.Description,
	sr830.Description,
	afg3021b.Description,
	kurios.Description,
}

// app is the state shared by all subcommands.
type app struct {
	verbose  bool
	cfgPath  string
	envFiles []string
	conn     connutil.Conn

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "labinst",
		Short: "Control the lab's oscilloscope, multiplexer, lock-in, function generator and tunable filter",
		Long: `labinst opens VISA resources (GPIB through a Prologix controller, TCPIP
sockets, serial ports and USBTMC devices) and runs common measurements.

Resources come from labinst.yaml, from LABINST_<NAME>_RESOURCE variables
(also read from .env) or from --resource.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.log.Sync() },
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&a.cfgPath, "config", config.DefaultPath, "config file")
	pf.StringSliceVar(&a.envFiles, "env", []string{".env"}, "dotenv files to load")
	a.conn.AddFlags(pf)

	root.AddCommand(
		a.listCmd(),
		a.resourcesCmd(),
		a.idnCmd(),
		a.configCmd(),
		a.scopeCmd(),
		a.muxCmd(),
		a.lockinCmd(),
		a.fgenCmd(),
		a.filterCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if a.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.log = log
	if err := config.LoadEnv(a.envFiles...); err != nil {
		return err
	}
	if a.cfg, err = config.Load(a.cfgPath); err != nil {
		return err
	}
	return nil
}

// open resolves the named instrument's resource and options.
func (a *app) open(cmd *cobra.Command, name string) (string, []instrument.Option, error) {
	return a.conn.Setup(a.cfg, name, a.log, cmd.ErrOrStderr())
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the instrument drivers and their methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return instrument.PrintCatalog(cmd.OutOrStdout(), catalog)
		},
	}
}

func (a *app) resourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List serial ports and USBTMC instruments attached to this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := labinst.ListResources()
			for _, r := range res {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
}

func (a *app) idnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "idn [instrument]",
		Short: "Query *IDN? of a configured instrument or of --resource",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "instrument"
			if len(args) == 1 {
				name = args[0]
			}
			resource, opts, err := a.open(cmd, name)
			if err != nil {
				return err
			}
			res, err := instrument.Apply(0, opts).Open(resource)
			if err != nil {
				return err
			}
			defer res.Close()
			id, err := res.Identify()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Address(), id)
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cfg.Write(cmd.OutOrStdout())
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeCSV writes a header and rows and flushes.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
