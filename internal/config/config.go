package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/frieda566/plant-watering-system/internal/telegram"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLLog                bool

	// SerialPort is empty when the Arduino should be auto-detected.
	SerialPort        string
	SerialBaud        int
	SerialReadTimeout time.Duration
	Schema            telegram.Schema
	DeviceID          string

	// SnapshotHour is the local hour at which the daily reading is kept; -1 disables it.
	SnapshotHour int

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	DBusEnabled        bool
	DBusUpdateInterval time.Duration
}

// MQTTEnabled reports whether readings are republished to a broker.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_driver", "sqlite3")
	v.SetDefault("sqlite_path", DBPath())
	v.SetDefault("db_max_open_conns", "1")
	v.SetDefault("db_max_idle_conns", "1")
	v.SetDefault("db_conn_max_lifetime", "0s")
	v.SetDefault("sql_log", "false")
	v.SetDefault("serial_baud", "9600")
	v.SetDefault("serial_read_timeout", "1s")
	v.SetDefault("schema", "compact")
	v.SetDefault("device_id", "plant")
	v.SetDefault("snapshot_hour", "14")
	v.SetDefault("mqtt_port", "1883")
	v.SetDefault("dbus_enabled", "false")
	v.SetDefault("dbus_update_interval", "30s")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// LoadFromEnv reads configuration from the environment only.
func LoadFromEnv() (Config, error) {
	return Load("")
}

// Load reads configuration from an optional file, overridden by the environment.
func Load(path string) (Config, error) {
	v, err := newViper(path)
	if err != nil {
		return Config{}, err
	}
	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	appEnv := get("app_env")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(get("log_level"))
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := atoi("DB_MAX_OPEN_CONNS", get("db_max_open_conns"))
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := atoi("DB_MAX_IDLE_CONNS", get("db_max_idle_conns"))
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := duration("DB_CONN_MAX_LIFETIME", get("db_conn_max_lifetime"))
	if err != nil {
		return Config{}, err
	}
	sqlLog, err := boolean("SQL_LOG", get("sql_log"))
	if err != nil {
		return Config{}, err
	}

	baud, err := atoi("SERIAL_BAUD", get("serial_baud"))
	if err != nil {
		return Config{}, err
	}
	if baud <= 0 {
		return Config{}, fmt.Errorf("SERIAL_BAUD must be positive, got %d", baud)
	}
	readTimeout, err := duration("SERIAL_READ_TIMEOUT", get("serial_read_timeout"))
	if err != nil {
		return Config{}, err
	}
	if readTimeout <= 0 {
		return Config{}, fmt.Errorf("SERIAL_READ_TIMEOUT must be positive, got %v", readTimeout)
	}

	schema, err := loadSchema(get("schema"), get("schema_fields"), get("telegram_mode"))
	if err != nil {
		return Config{}, err
	}

	snapshotHour, err := atoi("SNAPSHOT_HOUR", get("snapshot_hour"))
	if err != nil {
		return Config{}, err
	}
	if snapshotHour < -1 || snapshotHour > 23 {
		return Config{}, fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23 (or -1 to disable), got %d", snapshotHour)
	}

	mqttPort, err := atoi("MQTT_PORT", get("mqtt_port"))
	if err != nil {
		return Config{}, err
	}
	deviceID := get("device_id")
	mqttTopic := get("mqtt_topic")
	if mqttTopic == "" {
		mqttTopic = fmt.Sprintf("plants/%s/readings", deviceID)
	}

	dbusEnabled, err := boolean("DBUS_ENABLED", get("dbus_enabled"))
	if err != nil {
		return Config{}, err
	}
	dbusInterval, err := duration("DBUS_UPDATE_INTERVAL", get("dbus_update_interval"))
	if err != nil {
		return Config{}, err
	}
	if dbusInterval <= 0 {
		return Config{}, fmt.Errorf("DBUS_UPDATE_INTERVAL must be positive, got %v", dbusInterval)
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              get("http_addr"),
		SQLiteDriver:          get("db_driver"),
		SQLiteDSN:             get("db_dsn"),
		SQLitePath:            get("sqlite_path"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLLog:                sqlLog,
		SerialPort:            get("serial_port"),
		SerialBaud:            baud,
		SerialReadTimeout:     readTimeout,
		Schema:                schema,
		DeviceID:              deviceID,
		SnapshotHour:          snapshotHour,
		MQTTBroker:            get("mqtt_broker"),
		MQTTPort:              mqttPort,
		MQTTClientID:          get("mqtt_client_id"),
		MQTTTopic:             mqttTopic,
		DBusEnabled:           dbusEnabled,
		DBusUpdateInterval:    dbusInterval,
	}, nil
}

func loadSchema(name, fields, mode string) (telegram.Schema, error) {
	var schema telegram.Schema
	if strings.EqualFold(name, "custom") {
		if fields == "" {
			return telegram.Schema{}, fmt.Errorf("SCHEMA=custom requires SCHEMA_FIELDS (e.g. M=moisture,T=temperature)")
		}
		m, err := telegram.ParseFields(fields)
		if err != nil {
			return telegram.Schema{}, fmt.Errorf("invalid SCHEMA_FIELDS: %w", err)
		}
		schema = telegram.Schema{Name: "custom", Mode: telegram.Streamed, Fields: m}
	} else {
		var err error
		schema, err = telegram.Preset(name)
		if err != nil {
			return telegram.Schema{}, fmt.Errorf("invalid SCHEMA: %w", err)
		}
	}
	if mode != "" {
		m, err := telegram.ParseMode(mode)
		if err != nil {
			return telegram.Schema{}, fmt.Errorf("invalid TELEGRAM_MODE: %w", err)
		}
		schema.Mode = m
	}
	return schema, schema.Validate()
}

func atoi(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func duration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func boolean(key, s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
