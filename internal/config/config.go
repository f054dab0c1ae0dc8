package config

import (
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nttcom/bgpls/internal/pkg/transcode"
)

type Log struct {
	Path         string        `yaml:"path"`
	Name         string        `yaml:"name"`
	Debug        bool          `yaml:"debug"`
	MaxAge       time.Duration `yaml:"maxAge"`
	RotationTime time.Duration `yaml:"rotationTime"`
}

type Gobgp struct {
	Address  string        `yaml:"address"`
	Port     string        `yaml:"port"`
	Interval time.Duration `yaml:"interval"`
}

type Metrics struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

type Global struct {
	Log     Log     `yaml:"log"`
	Gobgp   Gobgp   `yaml:"gobgp"`
	Metrics Metrics `yaml:"metrics"`
}

type Config struct {
	Global Global `yaml:"global"`
	// TE links installed at startup, as if learned from an IGP
	TELinks []transcode.TELink `yaml:"teLinks"`
}

func defaultConfig() Config {
	return Config{
		Global: Global{
			Log: Log{
				Path:         "/var/log/bgplsd/",
				Name:         "bgplsd.log",
				MaxAge:       24 * time.Hour,
				RotationTime: time.Hour,
			},
			Gobgp: Gobgp{
				Port:     "50051",
				Interval: 30 * time.Second,
			},
			Metrics: Metrics{
				Port: "9100",
			},
		},
	}
}

// Parse reads a YAML configuration. Keys absent from r keep their default
// value.
func Parse(r io.Reader) (Config, error) {
	c := defaultConfig()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}
	if c.Global.Gobgp.Interval <= 0 {
		return c, errors.New("gobgp interval must be positive")
	}
	return c, nil
}

func ReadConfigFile(configFile string) (Config, error) {
	f, err := os.Open(configFile)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	return Parse(f)
}
