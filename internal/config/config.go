// Package config provides configuration helpers for go-conepose commands.
// Values come from environment variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/cone"
)

// Defaults for the service.
const (
	DefaultPort     = "8090"
	DefaultLogLevel = "info"
	DefaultTopic    = "cone-estimates"
)

// Kafka holds the optional result publisher settings.
// An empty BootstrapServers disables Kafka.
type Kafka struct {
	BootstrapServers string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	Topic            string
	Acks             string
}

// Enabled reports whether a broker list was configured.
func (k Kafka) Enabled() bool {
	return k.BootstrapServers != ""
}

// Config is the resolved runtime configuration.
type Config struct {
	Port     string
	LogLevel string
	Camera   camera.Config
	Geometry cone.Geometry
	Kafka    Kafka
}

// Load reads a .env file if one exists and resolves the configuration from
// the environment. A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv resolves the configuration from the current environment only.
func FromEnv() (Config, error) {
	presetName := getEnv("CONEPOSE_CAMERA", camera.PresetLimelight)
	preset := camera.GetPreset(presetName)
	if preset == nil {
		return Config{}, fmt.Errorf("unknown camera preset %q (available: %v)", presetName, camera.PresetNames())
	}
	cam := *preset

	var err error
	if cam.FOV, err = getEnvFloat("CONEPOSE_FOV", cam.FOV); err != nil {
		return Config{}, err
	}
	if cam.Width, err = getEnvInt("CONEPOSE_RESOLUTION", cam.Width); err != nil {
		return Config{}, err
	}
	if err := cam.Validate(); err != nil {
		return Config{}, err
	}

	geom := cone.ReferenceGeometry()
	if geom.SideLength, err = getEnvFloat("CONEPOSE_SIDE_LENGTH", geom.SideLength); err != nil {
		return Config{}, err
	}
	if geom.BaseLength, err = getEnvFloat("CONEPOSE_BASE_LENGTH", geom.BaseLength); err != nil {
		return Config{}, err
	}
	if geom.EdgeAngleOffset, err = getEnvFloat("CONEPOSE_EDGE_OFFSET", geom.EdgeAngleOffset); err != nil {
		return Config{}, err
	}
	if geom.BaseAngleOffset, err = getEnvFloat("CONEPOSE_BASE_OFFSET", geom.BaseAngleOffset); err != nil {
		return Config{}, err
	}
	if err := geom.Validate(); err != nil {
		return Config{}, err
	}

	return Config{
		Port:     getEnv("CONEPOSE_PORT", DefaultPort),
		LogLevel: getEnv("CONEPOSE_LOG_LEVEL", DefaultLogLevel),
		Camera:   cam,
		Geometry: geom,
		Kafka: Kafka{
			BootstrapServers: getEnv("KAFKA_BOOTSTRAP_SERVERS", ""),
			SecurityProtocol: getEnv("KAFKA_SECURITY_PROTOCOL", "PLAINTEXT"),
			SASLMechanism:    getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:     getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:     getEnv("KAFKA_SASL_PASSWORD", ""),
			Topic:            getEnv("KAFKA_TOPIC", DefaultTopic),
			Acks:             getEnv("KAFKA_ACKS", "all"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}
