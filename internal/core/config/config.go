package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Mongo holds the MongoDB connection configuration.
	Mongo MongoConfig `mapstructure:",squash"`

	// Redis holds the cache configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Courier holds courier provider settings shared by all adapters.
	Courier CourierConfig `mapstructure:",squash"`

	// Shipment holds the payload-building defaults.
	Shipment ShipmentConfig `mapstructure:",squash"`
}

// MongoConfig holds MongoDB connection details.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string `mapstructure:"MONGO_URI" required:"true"`
	// Database is the database name used for all collections.
	Database string `mapstructure:"MONGO_DATABASE" default:"fulfillment"`
}

// RedisConfig holds the Redis cache connection details.
type RedisConfig struct {
	// URL is the Redis connection string (redis://[:password@]host[:port][/db]).
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379"`
	// TrackingTTLSeconds is how long a live tracking snapshot stays cached.
	TrackingTTLSeconds int `mapstructure:"REDIS_TRACKING_TTL_SECONDS" default:"300"`
}

// TrackingTTL returns the tracking snapshot TTL as a duration.
func (c RedisConfig) TrackingTTL() time.Duration {
	return time.Duration(c.TrackingTTLSeconds) * time.Second
}

// CourierConfig holds settings shared by the courier adapters.
type CourierConfig struct {
	// PathaoBaseURL overrides the Pathao API base URL (sandbox vs production).
	PathaoBaseURL string `mapstructure:"COURIER_PATHAO_BASE_URL" default:"https://api-hermes.pathao.com"`
	// SteadfastBaseURL overrides the Steadfast API base URL.
	SteadfastBaseURL string `mapstructure:"COURIER_STEADFAST_BASE_URL" default:"https://portal.packzy.com"`
	// TimeoutSeconds bounds every outbound provider call.
	TimeoutSeconds int `mapstructure:"COURIER_HTTP_TIMEOUT_SECONDS" default:"10"`
}

// Timeout returns the provider call timeout as a duration.
func (c CourierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShipmentConfig controls how shipment payloads are built from orders.
// Missing recipient fields and item weights are filled from here rather
// than silently hardcoded.
type ShipmentConfig struct {
	// DefaultRecipient is the placeholder used for missing recipient name/phone.
	DefaultRecipient string `mapstructure:"SHIPMENT_DEFAULT_RECIPIENT" default:"Unknown"`
	// DefaultWeightKg is the per-item weight used when an order item carries none.
	DefaultWeightKg float64 `mapstructure:"SHIPMENT_DEFAULT_WEIGHT_KG" default:"0.5"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
