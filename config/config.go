package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address     string `yaml:"address"`
	SwaggerFile string `yaml:"swagger_file"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	SessionCookie    string `yaml:"session_cookie"`
	SessionMaxAgeDay int    `yaml:"session_max_age_days"`
}

type BookingConfig struct {
	HoldTTLMinutes          int `yaml:"hold_ttl_minutes"`
	FlightsCacheTTL         int `yaml:"flights_cache_ttl_seconds"`
	SearchTTLMinutes        int `yaml:"search_ttl_minutes"`
	ChosenTTLMinutes        int `yaml:"chosen_ttl_minutes"`
	PassengersTTLMinutes    int `yaml:"passengers_ttl_minutes"`
	SeatingTTLMinutes       int `yaml:"seating_ttl_minutes"`
	MaxRouteDepth           int `yaml:"max_route_depth"`
	ConnectionWindowMinutes int `yaml:"connection_window_minutes"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

type WorkerConfig struct {
	ExpirationSweepMinutes int    `yaml:"expiration_sweep_minutes"`
	EmailFrom              string `yaml:"email_from"`
}

func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		c.HTTP.Address = v
	}
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Auth.SessionCookie == "" {
		c.Auth.SessionCookie = "booking_session"
	}
	if c.Auth.SessionMaxAgeDay <= 0 {
		c.Auth.SessionMaxAgeDay = 30
	}
	if c.Booking.HoldTTLMinutes <= 0 {
		c.Booking.HoldTTLMinutes = 5
	}
	if c.Booking.FlightsCacheTTL <= 0 {
		c.Booking.FlightsCacheTTL = 60
	}
	if c.Booking.SearchTTLMinutes <= 0 {
		c.Booking.SearchTTLMinutes = 10
	}
	if c.Booking.ChosenTTLMinutes <= 0 {
		c.Booking.ChosenTTLMinutes = 30
	}
	if c.Booking.PassengersTTLMinutes <= 0 {
		c.Booking.PassengersTTLMinutes = 30
	}
	if c.Booking.SeatingTTLMinutes <= 0 {
		c.Booking.SeatingTTLMinutes = 10
	}
	if c.Booking.MaxRouteDepth <= 0 {
		c.Booking.MaxRouteDepth = 4
	}
	if c.Booking.ConnectionWindowMinutes <= 0 {
		c.Booking.ConnectionWindowMinutes = 24 * 60
	}
	if c.Worker.ExpirationSweepMinutes <= 0 {
		c.Worker.ExpirationSweepMinutes = 1
	}
	if c.Worker.EmailFrom == "" {
		c.Worker.EmailFrom = "tickets@itinerary.local"
	}
}
