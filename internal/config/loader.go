package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Flags override file values.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Port:           80,
		TestTypes:      []TestType{TestTypeUDP},
		Threads:        10,
		PayloadSize:    1024,
		ConnectTimeout: 2 * time.Second,
		ConfigFile:     configPath,
		Tracing:        TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Target = strings.TrimSpace(cfg.Target)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := settings["target"]; ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.Target = strings.TrimSpace(val)
	}
	if raw, ok := settings["port"]; ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = val
	}
	if raw, ok := settings["test_types"]; ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("test_types: %w", err)
		}
		cfg.TestTypes = toTestTypes(vals)
	}
	if raw, ok := settings["threads"]; ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("threads: %w", err)
		}
		cfg.Threads = val
	}
	if raw, ok := settings["payload_size"]; ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("payload_size: %w", err)
		}
		cfg.PayloadSize = val
	}
	if raw, ok := settings["rate"]; ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}
	if raw, ok := settings["duration"]; ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = val
	}
	if raw, ok := settings["connect_timeout"]; ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = val
	}
	if raw, ok := settings["spoof"]; ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("spoof: %w", err)
		}
		cfg.Spoof = val
	}
	if raw, ok := settings["verbose"]; ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}
	if raw, ok := settings["json_output"]; ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}
	if raw, ok := settings["dashboard"]; ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}
	if raw, ok := settings["report_file"]; ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("report_file: %w", err)
		}
		cfg.ReportFile = strings.TrimSpace(val)
	}
	if raw, ok := settings["tracing"]; ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(tc *TracingConfig, raw interface{}) error {
	section, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected a mapping, got %T", raw)
	}
	if v, ok := section["enable"]; ok {
		val, err := asBool(v)
		if err != nil {
			return fmt.Errorf("enable: %w", err)
		}
		tc.Enable = val
	}
	if v, ok := section["endpoint"]; ok {
		val, err := asString(v)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if v, ok := section["protocol"]; ok {
		val, err := asString(v)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = val
	}
	if v, ok := section["service_name"]; ok {
		val, err := asString(v)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = val
	}
	if v, ok := section["insecure"]; ok {
		val, err := asBool(v)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if v, ok := section["sample_rate"]; ok {
		val, err := asFloat(v)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	return nil
}

func asString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
}

func asInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

func asBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

func asFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

// asDuration accepts Go duration strings ("30s") or bare integers, which are
// treated as seconds.
func asDuration(raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if secs, err := strconv.Atoi(trimmed); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(trimmed)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", raw)
	}
}

func asStringSlice(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return strings.Split(v, ","), nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
}
