package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // BUCKET_TIMEZONE must resolve in minimal images

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type AppConfig struct {
	// Realtime Database connection.
	DatabaseURL    string `validate:"required,url"`
	ProjectID      string
	SensorPath     string `validate:"required"`
	DatabaseSecret string
	Credentials    []byte // service-account JSON, from file or base64

	// TankFullDistance is the sensor distance of the empty-to-full reference point.
	TankFullDistance float64 `validate:"gt=0"`

	// Location used for day/week/month/year boundaries.
	BucketLocation *time.Location `validate:"required"`

	HTTPTimeout         time.Duration `validate:"gt=0"`
	FetchMaxRetries     int           `validate:"gte=0,lte=10"`
	FetchInitialBackoff time.Duration `validate:"gt=0"`
	FetchMaxBackoff     time.Duration `validate:"gtefield=FetchInitialBackoff"`

	// RefreshInterval of 0 means fetch once at startup.
	RefreshInterval time.Duration `validate:"gte=0"`

	// In-memory dashboard retention.
	StoreMaxHistory int           // max number of dashboards kept (0 = unlimited)
	StoreMaxAge     time.Duration // max age of dashboards (0 = unlimited)

	ChartWidth  int `validate:"gte=200,lte=4000"`
	ChartHeight int `validate:"gte=100,lte=4000"`

	LogLevel  string `validate:"omitempty,oneof=trace debug info warn error"`
	LogPretty bool

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
// The caller is expected to have loaded any .env file already.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("FIREBASE_DATABASE_URL"))
	cfg.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.SensorPath = getenvDefault("FIREBASE_SENSOR_PATH", "UltraSonicSensor")
	cfg.DatabaseSecret = os.Getenv("FIREBASE_DATABASE_SECRET")

	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	// No default: the calibration depends on the physical tank.
	fullStr := strings.TrimSpace(os.Getenv("TANK_FULL_DISTANCE"))
	if fullStr == "" {
		return nil, fmt.Errorf("TANK_FULL_DISTANCE is required")
	}
	full, err := strconv.ParseFloat(fullStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TANK_FULL_DISTANCE: %w", err)
	}
	cfg.TankFullDistance = full

	loc, err := time.LoadLocation(getenvDefault("BUCKET_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUCKET_TIMEZONE: %w", err)
	}
	cfg.BucketLocation = loc

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 3)
	if cfg.FetchInitialBackoff, err = getenvDuration("FETCH_INITIAL_BACKOFF", "500ms"); err != nil {
		return nil, err
	}
	if cfg.FetchMaxBackoff, err = getenvDuration("FETCH_MAX_BACKOFF", "5s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute refreshes
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.ChartWidth = getenvInt("CHART_WIDTH", 800)
	cfg.ChartHeight = getenvInt("CHART_HEIGHT", 300)

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogPretty, _ = strconv.ParseBool(os.Getenv("LOG_PRETTY"))

	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadCredentials reads the service-account key from FIREBASE_CREDENTIALS_FILE,
// or from base64 in FIREBASE_CREDENTIALS.
func loadCredentials() ([]byte, error) {
	if path := os.Getenv("FIREBASE_CREDENTIALS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read FIREBASE_CREDENTIALS_FILE: %w", err)
		}
		return data, nil
	}
	if encoded := strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS")); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode FIREBASE_CREDENTIALS: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
