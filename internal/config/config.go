package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the agent
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Behavior  BehaviorConfig  `mapstructure:"behavior"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Health    HealthConfig    `mapstructure:"health"`
	Transport TransportConfig `mapstructure:"transport"`
}

// ServerConfig is the game server we play on
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Nickname string `mapstructure:"nickname"`
	JoinCode string `mapstructure:"join_code"`
}

// AgentConfig holds decision core settings
type AgentConfig struct {
	DecisionTimeoutMs int       `mapstructure:"decision_timeout_ms"`
	DangerLadder      []float64 `mapstructure:"danger_ladder"`
	FailuresPerStep   int       `mapstructure:"failures_per_step"`
	AllowBackward     bool      `mapstructure:"allow_backward"`
	ForgetTicks       int       `mapstructure:"forget_ticks"`
	WanderRadius      int       `mapstructure:"wander_radius"`
	FightThreshold    float64   `mapstructure:"fight_threshold"`
	Seed              int64     `mapstructure:"seed"`
}

// BehaviorConfig holds module weights; hot reloadable
type BehaviorConfig struct {
	Fight            float64            `mapstructure:"fight"`
	CaptureZone      float64            `mapstructure:"capture_zone"`
	LayMine          float64            `mapstructure:"lay_mine"`
	Wander           float64            `mapstructure:"wander"`
	ScanBase         float64            `mapstructure:"scan_base"`
	ScanFloor        float64            `mapstructure:"scan_floor"`
	ScanQuietBonus   float64            `mapstructure:"scan_quiet_bonus"`
	Items            map[string]float64 `mapstructure:"items"`
	ItemRecencyTicks int                `mapstructure:"item_recency_ticks"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Events lists the event types logged by the event logger; empty logs all
	Events []string `mapstructure:"events"`
}

// TraceConfig holds decision trace settings
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// HealthConfig holds the gRPC health endpoint and goroutine monitor settings
type HealthConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	Host                    string `mapstructure:"host"`
	Port                    int    `mapstructure:"port"`
	EnableReflection        bool   `mapstructure:"enable_reflection"`
	GracefulShutdownDelayMs int    `mapstructure:"graceful_shutdown_delay_ms"`
	GoroutineCheckSeconds   int    `mapstructure:"goroutine_check_seconds"`
	GoroutineThreshold      int    `mapstructure:"goroutine_threshold"`
}

// TransportConfig holds connection settings
type TransportConfig struct {
	ReconnectRate  float64 `mapstructure:"reconnect_rate"`
	ReconnectBurst int     `mapstructure:"reconnect_burst"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	ValidateSchema bool    `mapstructure:"validate_schema"`
	WriteTimeoutMs int     `mapstructure:"write_timeout_ms"`
	HandshakeMs    int     `mapstructure:"handshake_timeout_ms"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
	mu  sync.RWMutex
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.nickname", "TankBattleAgent")
	v.SetDefault("server.join_code", "")

	// Agent defaults
	v.SetDefault("agent.decision_timeout_ms", 150)
	v.SetDefault("agent.danger_ladder", []float64{0.2, 0.5, 0.8, 1.0})
	v.SetDefault("agent.failures_per_step", 1)
	v.SetDefault("agent.allow_backward", false)
	v.SetDefault("agent.forget_ticks", 100)
	v.SetDefault("agent.wander_radius", 5)
	v.SetDefault("agent.fight_threshold", 0.5)
	v.SetDefault("agent.seed", 1)

	// Behavior weights
	v.SetDefault("behavior.fight", 1.0)
	v.SetDefault("behavior.capture_zone", 0.65)
	v.SetDefault("behavior.lay_mine", 0.2)
	v.SetDefault("behavior.wander", 0.1)
	v.SetDefault("behavior.scan_base", 0.1)
	v.SetDefault("behavior.scan_floor", 0.01)
	v.SetDefault("behavior.scan_quiet_bonus", 0.05)
	v.SetDefault("behavior.items", map[string]float64{
		"laser":         0.4,
		"double_bullet": 0.6,
		"radar":         0.7,
		"mine":          0.3,
	})
	v.SetDefault("behavior.item_recency_ticks", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.events", []string{})

	// Trace defaults
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.dir", "traces")

	// Health defaults
	v.SetDefault("health.enabled", false)
	v.SetDefault("health.host", "127.0.0.1")
	v.SetDefault("health.port", 50052)
	v.SetDefault("health.enable_reflection", false)
	v.SetDefault("health.graceful_shutdown_delay_ms", 0)
	v.SetDefault("health.goroutine_check_seconds", 30)
	v.SetDefault("health.goroutine_threshold", 200)

	// Transport defaults
	v.SetDefault("transport.reconnect_rate", 0.5)
	v.SetDefault("transport.reconnect_burst", 3)
	v.SetDefault("transport.max_attempts", 10)
	v.SetDefault("transport.validate_schema", false)
	v.SetDefault("transport.write_timeout_ms", 1000)
	v.SetDefault("transport.handshake_timeout_ms", 5000)
}

// Init initializes the configuration
func Init(configPath string) error {
	nv := viper.New()

	// Set defaults before loading any config
	setViperDefaults(nv)

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/tank-agent")
	}

	nv.SetEnvPrefix("TANK")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// a missing explicit file falls back to defaults too
		if configPath == "" && !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c, err := decode(nv)
	if err != nil {
		return err
	}

	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Get returns the global config instance
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c != nil {
		return c
	}

	// Initialize with defaults if not already initialized
	if err := Init(""); err != nil {
		panic("failed to initialize config with defaults: " + err.Error())
	}
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded config
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)
	vp := GetViper()

	// MergeInConfig reads the file named by SetConfigFile; restore the base
	// file afterwards so hot reload keeps watching it
	base := vp.ConfigFileUsed()
	vp.SetConfigFile(envFile)
	err := vp.MergeInConfig()
	if base != "" {
		vp.SetConfigFile(base)
	}
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
		return nil
	}

	c, err := decode(vp)
	if err != nil {
		return err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// Set allows runtime config updates
func Set(key string, value interface{}) error {
	vp := GetViper()
	vp.Set(key, value)

	c, err := decode(vp)
	if err != nil {
		return err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// GetString gets a string value from config
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return GetViper().GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return GetViper().ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. onChange receives
// the new config, or the error that kept the previous one in force.
func WatchConfig(onChange func(*Config, error)) {
	vp := GetViper()
	vp.OnConfigChange(func(e fsnotify.Event) {
		c, err := decode(vp)
		if err == nil {
			mu.Lock()
			cfg = c
			mu.Unlock()
		}
		if onChange != nil {
			onChange(c, err)
		}
	})
	vp.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	// Server
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if strings.TrimSpace(c.Server.Nickname) == "" {
		return fmt.Errorf("server.nickname must not be empty")
	}

	// Agent
	if c.Agent.DecisionTimeoutMs <= 0 {
		return fmt.Errorf("agent.decision_timeout_ms must be positive")
	}
	if len(c.Agent.DangerLadder) == 0 {
		return fmt.Errorf("agent.danger_ladder must not be empty")
	}
	prev := 0.0
	for i, step := range c.Agent.DangerLadder {
		if step <= 0 || step > 1 {
			return fmt.Errorf("agent.danger_ladder[%d] must be in (0, 1]", i)
		}
		if step < prev {
			return fmt.Errorf("agent.danger_ladder must be ascending")
		}
		prev = step
	}
	if c.Agent.FailuresPerStep < 1 {
		return fmt.Errorf("agent.failures_per_step must be at least 1")
	}
	if c.Agent.ForgetTicks < 1 {
		return fmt.Errorf("agent.forget_ticks must be at least 1")
	}
	if c.Agent.WanderRadius < 1 {
		return fmt.Errorf("agent.wander_radius must be at least 1")
	}
	if c.Agent.FightThreshold <= 0 || c.Agent.FightThreshold > 1 {
		return fmt.Errorf("agent.fight_threshold must be in (0, 1]")
	}

	// Behavior
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("behavior: %w", err)
	}
	for name := range c.Behavior.Items {
		if _, ok := itemKind(name); !ok {
			return fmt.Errorf("behavior.items: unknown item %q", name)
		}
	}

	// Logging
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be console or json")
	}

	// Trace
	if c.Trace.Enabled && c.Trace.Dir == "" {
		return fmt.Errorf("trace.dir must be set when tracing is enabled")
	}

	// Health
	if c.Health.Enabled && (c.Health.Port <= 0 || c.Health.Port > 65535) {
		return fmt.Errorf("health.port must be between 1 and 65535")
	}
	if c.Health.GracefulShutdownDelayMs < 0 {
		return fmt.Errorf("health.graceful_shutdown_delay_ms must be non-negative")
	}
	if c.Health.GoroutineCheckSeconds < 0 || c.Health.GoroutineThreshold < 0 {
		return fmt.Errorf("health goroutine monitor settings must be non-negative")
	}

	// Transport
	if c.Transport.ReconnectRate < 0 {
		return fmt.Errorf("transport.reconnect_rate must be non-negative")
	}
	if c.Transport.ReconnectBurst < 1 {
		return fmt.Errorf("transport.reconnect_burst must be at least 1")
	}
	if c.Transport.MaxAttempts < 0 {
		return fmt.Errorf("transport.max_attempts must be non-negative")
	}
	if c.Transport.WriteTimeoutMs <= 0 {
		return fmt.Errorf("transport.write_timeout_ms must be positive")
	}
	if c.Transport.HandshakeMs <= 0 {
		return fmt.Errorf("transport.handshake_timeout_ms must be positive")
	}

	return nil
}
