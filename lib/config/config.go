// Package config loads the instrument table used by the labinst command: a
// YAML file mapping instrument names to resource strings and connection
// settings, with overrides from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gotmc/labinst"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named.
const DefaultPath = "labinst.yaml"

// Instrument is the connection of one named instrument.
type Instrument struct {
	Resource   string        `yaml:"resource"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	BaudRate   int           `yaml:"baud,omitempty"`
	WriteDelay time.Duration `yaml:"write_delay,omitempty"`
}

// Config is the whole file.
type Config struct {
	PrologixPort string                `yaml:"prologix_port,omitempty"`
	AR488        bool                  `yaml:"ar488,omitempty"`
	Datalog      string                `yaml:"datalog,omitempty"`
	Instruments  map[string]Instrument `yaml:"instruments"`
}

// Default names the lab's usual instruments without resources; they come
// from the file or the environment.
func Default() *Config {
	return &Config{
		Datalog: "labinst.db",
		Instruments: map[string]Instrument{
			"scope":  {},
			"mux":    {},
			"lockin": {},
			"fgen":   {Resource: "USB0::0x0699::0x0346::C034165::INSTR"},
			"filter": {BaudRate: 115200},
		},
	}
}

// LoadEnv loads .env style files into the process environment without
// overriding variables already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path over Default and applies environment
// overrides. A missing file leaves the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if cfg.Instruments == nil {
		cfg.Instruments = map[string]Instrument{}
	}
	cfg.applyEnvOverrides(os.LookupEnv)
	return cfg, cfg.Validate()
}

// EnvName returns the variable that overrides the resource of the named
// instrument, e.g. LABINST_LOCKIN_RESOURCE.
func EnvName(instrument string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(instrument))
	return "LABINST_" + name + "_RESOURCE"
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) {
	if port, ok := lookup("LABINST_PROLOGIX_PORT"); ok && port != "" {
		c.PrologixPort = port
	}
	if path, ok := lookup("LABINST_DATALOG"); ok && path != "" {
		c.Datalog = path
	}
	for name, inst := range c.Instruments {
		if res, ok := lookup(EnvName(name)); ok && res != "" {
			inst.Resource = res
			c.Instruments[name] = inst
		}
	}
}

// Validate checks every configured resource string.
func (c *Config) Validate() error {
	var errs []error
	for _, name := range c.Names() {
		res := c.Instruments[name].Resource
		if res == "" {
			continue
		}
		if _, err := labinst.ParseAddress(res); err != nil {
			errs = append(errs, fmt.Errorf("instrument %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the configured instrument names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Instruments))
	for name := range c.Instruments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resource returns the resource string of the named instrument.
func (c *Config) Resource(name string) (string, error) {
	inst, ok := c.Instruments[name]
	if !ok || inst.Resource == "" {
		return "", fmt.Errorf("no resource configured for %s (set %s or add it to %s)",
			name, EnvName(name), DefaultPath)
	}
	return inst.Resource, nil
}

// Options returns the resource options of the named instrument, including
// the shared GPIB adapter settings.
func (c *Config) Options(name string) []labinst.Option {
	var opts []labinst.Option
	inst := c.Instruments[name]
	if inst.Timeout > 0 {
		opts = append(opts, labinst.WithTimeout(inst.Timeout))
	}
	if inst.BaudRate > 0 {
		opts = append(opts, labinst.WithBaudRate(inst.BaudRate))
	}
	if inst.WriteDelay > 0 {
		opts = append(opts, labinst.WithWriteDelay(inst.WriteDelay))
	}
	if c.PrologixPort != "" {
		opts = append(opts, labinst.WithPrologixPort(c.PrologixPort))
	}
	if c.AR488 {
		opts = append(opts, labinst.WithAR488())
	}
	return opts
}

// Write prints c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
