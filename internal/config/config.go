package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"schoollend/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Lending    LendingConfig    `yaml:"lending"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

// APIRateLimitConfig TrustedProxies: IP или CIDR прокси, чьему X-Forwarded-For можно верить
type APIRateLimitConfig struct {
	RPS            float64  `yaml:"rps"`
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// ProxyNets parses trusted_proxies; a bare IP becomes a single-host network.
func (c APIRateLimitConfig) ProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig пустой Address отключает Redis, сессии хранятся в памяти
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type LendingConfig struct {
	MaxReservationDays int      `yaml:"max_reservation_days"`
	UnavailableDates   []string `yaml:"unavailable_dates"`
	SessionTTL         int      `yaml:"session_ttl"`
	SubmitRateLimit    int      `yaml:"submit_rate_limit"`
	SubmitRateWindow   int      `yaml:"submit_rate_window"`
	OverdueSchedule    string   `yaml:"overdue_schedule"`
}

// ScannerConfig задержки в миллисекундах
type ScannerConfig struct {
	Delay    int    `yaml:"delay"`
	Timeout  int    `yaml:"timeout"`
	MockCode string `yaml:"mock_code"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Lending.MaxReservationDays < 1 {
		return errors.New("lending.max_reservation_days must be positive")
	}
	if _, err := c.Lending.UnavailableDays(); err != nil {
		return err
	}
	if c.Scanner.Timeout < c.Scanner.Delay {
		return fmt.Errorf("scanner.timeout %dms is shorter than scanner.delay %dms", c.Scanner.Timeout, c.Scanner.Delay)
	}
	if c.API.RateLimit.RPS < 0 || c.API.RateLimit.Burst < 0 {
		return errors.New("api.rate_limit must not be negative")
	}
	if _, err := c.API.RateLimit.ProxyNets(); err != nil {
		return fmt.Errorf("api.rate_limit.trusted_proxies: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/catalog.yaml"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}

	// Lending defaults
	if c.Lending.MaxReservationDays == 0 {
		c.Lending.MaxReservationDays = models.DefaultMaxReservationDays
	}
	if c.Lending.SessionTTL == 0 {
		c.Lending.SessionTTL = models.DefaultSessionTTL
	}
	if c.Lending.SubmitRateLimit == 0 {
		c.Lending.SubmitRateLimit = models.DefaultSubmitRateLimit
	}
	if c.Lending.SubmitRateWindow == 0 {
		c.Lending.SubmitRateWindow = models.DefaultSubmitRateWindow
	}
	if c.Lending.OverdueSchedule == "" {
		c.Lending.OverdueSchedule = models.DefaultOverdueSchedule
	}

	// Scanner defaults
	if c.Scanner.Delay == 0 {
		c.Scanner.Delay = models.DefaultScanDelay
	}
	if c.Scanner.Timeout == 0 {
		c.Scanner.Timeout = models.DefaultScanTimeout
	}
	if c.Scanner.MockCode == "" {
		c.Scanner.MockCode = models.DefaultScanMockCode
	}
}

// UnavailableDays parses lending.unavailable_dates.
func (l LendingConfig) UnavailableDays() ([]time.Time, error) {
	days := make([]time.Time, 0, len(l.UnavailableDates))
	for _, raw := range l.UnavailableDates {
		d, err := models.ParseDay(raw)
		if err != nil {
			return nil, fmt.Errorf("lending.unavailable_dates: %w", err)
		}
		days = append(days, d)
	}
	return days, nil
}

func (l LendingConfig) SessionTTLDuration() time.Duration {
	return time.Duration(l.SessionTTL) * time.Second
}

func (l LendingConfig) SubmitWindowDuration() time.Duration {
	return time.Duration(l.SubmitRateWindow) * time.Second
}

func (s ScannerConfig) DelayDuration() time.Duration {
	return time.Duration(s.Delay) * time.Millisecond
}

func (s ScannerConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}
