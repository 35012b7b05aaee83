package cmd

import (
	"fmt"
	"os"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/Mrinallcx/payagent-core/types"
)

// AppState is the modifiable state of the application, shared across
// commands.
type AppState struct {
	ConfigPath string
	LogLevel   string

	Logger log.Logger
	Config *types.Config
}

func NewAppState() *AppState {
	return &AppState{}
}

// InitAppState initializes the logger and loads configuration. Exits on a
// malformed config; there is nothing useful to run without one.
func (a *AppState) InitAppState() {
	if a.Logger == nil {
		a.InitLogger()
	}
	if a.Config == nil {
		a.loadConfigFile()
	}
}

func (a *AppState) InitLogger() {
	level, err := zerolog.ParseLevel(a.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.Logger = log.NewLogger(os.Stdout, log.LevelOption(level))
}

func (a *AppState) loadConfigFile() {
	config, err := ParseConfig(a.ConfigPath)
	if err != nil {
		a.Logger.Error("Unable to parse config file", "location", a.ConfigPath, "error", err)
		os.Exit(1)
	}
	a.Logger.Info("Successfully parsed config file", "location", a.ConfigPath)
	a.Config = config
}

// ParseConfig reads and validates a yaml config file.
func ParseConfig(path string) (*types.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	var config types.Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
