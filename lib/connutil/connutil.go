// Package connutil binds the connection flags shared by the labinst
// subcommands and turns them, together with the config file, into driver
// options.
package connutil

import (
	"io"
	"time"

	"github.com/gotmc/labinst"
	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/lib/config"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Conn holds the connection flags of one command invocation. Zero values
// leave the config file or driver defaults in place.
type Conn struct {
	Resource     string
	Timeout      time.Duration
	PrologixPort string
	AR488        bool
	Delay        time.Duration
	Trace        bool
}

// AddFlags registers the connection flags on fs.
func (c *Conn) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Resource, "resource", "r", c.Resource, "VISA resource string (overrides the config file)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "read timeout")
	fs.StringVar(&c.PrologixPort, "prologix", c.PrologixPort, "serial port of the Prologix GPIB controller")
	fs.BoolVar(&c.AR488, "ar488", c.AR488, "GPIB controller is an AR488")
	fs.DurationVar(&c.Delay, "delay", c.Delay, "minimum delay between writes")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "print every command and response")
}

// Setup returns the resource of the named instrument and the options to
// open it with. Flags win over cfg. The transcript goes to trace when
// tracing is on.
func (c *Conn) Setup(cfg *config.Config, name string, log *zap.Logger, trace io.Writer) (string, []instrument.Option, error) {
	resource := c.Resource
	if resource == "" {
		var err error
		if resource, err = cfg.Resource(name); err != nil {
			return "", nil, err
		}
	}
	if _, err := labinst.ParseAddress(resource); err != nil {
		return "", nil, err
	}

	resOpts := cfg.Options(name)
	if c.Timeout > 0 {
		resOpts = append(resOpts, labinst.WithTimeout(c.Timeout))
	}
	if c.PrologixPort != "" {
		resOpts = append(resOpts, labinst.WithPrologixPort(c.PrologixPort))
	}
	if c.AR488 {
		resOpts = append(resOpts, labinst.WithAR488())
	}
	if c.Delay > 0 {
		resOpts = append(resOpts, labinst.WithWriteDelay(c.Delay))
	}
	if c.Trace && trace != nil {
		resOpts = append(resOpts, labinst.WithTrace(trace))
	}

	log.Debug("connection", zap.String("instrument", name), zap.String("resource", resource))
	return resource, []instrument.Option{
		instrument.WithLogger(log.Named(name)),
		instrument.WithResourceOptions(resOpts...),
	}, nil
}
