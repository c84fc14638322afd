// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/gotmc/labinst/instrument/agilent34970a"
	"github.com/gotmc/labinst/lib/datalog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (a *app) muxCmd() *cobra.Command {
	cfg := agilent34970a.DefaultConfig()
	var (
		count int
		db    string
		logDB bool
	)
	mux := &cobra.Command{
		Use:   "mux",
		Short: "Agilent 34970A multiplexer",
	}
	scan := &cobra.Command{
		Use:   "scan",
		Short: "Scan channels and print CSV (time, channel, value), optionally logging to SQLite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logDB && db == "" {
				db = a.cfg.Datalog
			}
			return a.scan(cmd, cfg, count, db)
		},
	}
	f := scan.Flags()
	f.IntSliceVar(&cfg.Channels, "channels", cfg.Channels, "channels to scan")
	f.DurationVar(&cfg.ScanInterval, "interval", cfg.ScanInterval, "time between scans")
	f.DurationVar(&cfg.ChannelDelay, "channel-delay", cfg.ChannelDelay, "delay between channels")
	f.IntVarP(&count, "count", "n", 1, "number of scans, 0 to scan until interrupted")
	f.StringVar(&db, "db", "", "log scans to this SQLite database")
	f.BoolVar(&logDB, "log", false, "log scans to the datalog named in the config")
	mux.AddCommand(scan)
	return mux
}

func (a *app) scan(cmd *cobra.Command, cfg agilent34970a.Config, count int, db string) (err error) {
	resource, opts, err := a.open(cmd, "mux")
	if err != nil {
		return err
	}
	m, err := agilent34970a.Open(resource, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, m.Close()) }()

	var store *datalog.Store
	if db != "" {
		if store, err = datalog.Open(db); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		a.log.Info("logging scans", zap.String("db", db))
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	scans := make(chan agilent34970a.Scan)
	g.Go(func() error {
		defer close(scans)
		for i := 0; count == 0 || i < count; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(cfg.ScanInterval):
				}
			}
			s, err := m.OneScan()
			if err != nil {
				return err
			}
			select {
			case scans <- s:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	g.Go(func() error {
		return record(ctx, cmd, store, scans)
	})
	return g.Wait()
}

// record prints every scan and saves it when store is not nil.
func record(ctx context.Context, cmd *cobra.Command, store *datalog.Store, scans <-chan agilent34970a.Scan) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"time", "channel", "value"}); err != nil {
		return err
	}
	for s := range scans {
		rows := make([]datalog.Reading, len(s.Readings))
		for i, r := range s.Readings {
			rows[i] = datalog.Reading{Channel: r.Channel, Value: r.Value, Time: r.Time}
			if err := w.Write([]string{
				r.Time.Format(time.RFC3339Nano),
				strconv.Itoa(r.Channel),
				formatFloat(r.Value),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if store != nil {
			// a scan already read is saved even when interrupted
			if err := store.SaveScan(context.WithoutCancel(ctx), rows); err != nil {
				return err
			}
		}
	}
	return nil
}
