package sonny

import (
	"math"
	"os"
	"runtime"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read by LoadSettings when no path is given.
const DefaultConfigPath = "~/.sonny.yaml"

// Settings are the render parameters.
type Settings struct {
	SampleRate float64 `yaml:"sample_rate"`
	WindowSize int     `yaml:"window_size"`
	BufferSize int     `yaml:"buffer_size"` // look back samples prepended to each window after the first
	Start      float64 `yaml:"start"`       // seconds
	End        float64 `yaml:"end"`         // seconds, 0 for the program's end time
	Workers    int     `yaml:"workers"`
	MaxDepth   int     `yaml:"max_depth"` // nested chain invocations

	MaxDuration float64 `yaml:"max_duration"` // seconds rendered at most, 0 for no limit
}

func DefaultSettings() Settings {
	return Settings{
		SampleRate: 44100,
		WindowSize: 4096,
		Workers:    runtime.NumCPU(),
		MaxDepth:   256,
	}
}

// LoadSettings reads settings from a YAML file over the defaults. A missing
// file at the default path is not an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return s, errors.Wrap(err, "config path")
	}
	data, err := os.ReadFile(p)
	switch {
	case os.IsNotExist(err) && !explicit:
		return s, nil
	case err != nil:
		return s, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, errors.Wrapf(err, "parsing %s", p)
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	switch {
	case !finite(s.SampleRate) || !finite(s.Start) || !finite(s.End) || !finite(s.MaxDuration):
		return errors.New("settings must be finite")
	case !(s.SampleRate > 0):
		return errors.Errorf("sample rate must be positive, got %g", s.SampleRate)
	case s.WindowSize <= 0:
		return errors.Errorf("window size must be positive, got %d", s.WindowSize)
	case s.BufferSize < 0:
		return errors.Errorf("buffer size must not be negative, got %d", s.BufferSize)
	case s.End != 0 && s.End < s.Start:
		return errors.Errorf("end %gs is before start %gs", s.End, s.Start)
	case s.Workers < 0:
		return errors.Errorf("workers must not be negative, got %d", s.Workers)
	case s.MaxDepth <= 0:
		return errors.Errorf("max depth must be positive, got %d", s.MaxDepth)
	case s.MaxDuration < 0:
		return errors.Errorf("max duration must not be negative, got %g", s.MaxDuration)
	}
	return nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
