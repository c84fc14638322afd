// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package instrument

import (
	"bytes"
	"testing"
	"time"

	"github.com/gotmc/labinst"
	"github.com/gotmc/labinst/lib/fakeinst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestApply(t *testing.T) {
	s := Apply(time.Second, nil)
	assert.Equal(t, time.Second, s.Settle)
	assert.NotNil(t, s.Log)
	assert.NotNil(t, s.Sleep)

	var slept time.Duration
	s = Apply(time.Second, []Option{
		WithSettle(time.Millisecond),
		WithSleep(func(d time.Duration) { slept = d }),
		WithLogger(nil),
		WithResourceOptions(labinst.WithTimeout(time.Second)),
		WithResourceOptions(labinst.WithBaudRate(115200)),
	})
	s.Sleep(s.Settle)
	assert.Equal(t, time.Millisecond, slept)
	assert.Len(t, s.ResOpts, 2)
}

func TestIdentifyLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := fakeinst.New().On("*IDN?", "ACME,Sim,1,0")
	idn, err := Identify(f, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "ACME,Sim,1,0", idn)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ACME,Sim,1,0", logs.All()[0].ContextMap()["idn"])
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintCatalog(&buf, []Description{{
		Name:    "Sim",
		Package: "sim",
		Methods: []Method{{Signature: "Run() error", Summary: "Runs."}},
	}}))
	assert.Equal(t, "Sim (sim)\n  Run() error\n      Runs.\n\n", buf.String())
}
