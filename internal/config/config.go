// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	// URL of the external breakdown generator service
	GeneratorURL string

	// How often running timers are decremented
	TimerTickInterval time.Duration

	// How often the room sweeper checks for idle rooms
	RoomSweepInterval time.Duration

	// How long all participants must be inactive before a room is ended
	RoomInactivityWindow time.Duration

	// OTLP collector endpoint for tracing (empty disables tracing)
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port := 6161 // Default
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	generatorURL := os.Getenv("GENERATOR_URL")
	if generatorURL == "" {
		generatorURL = "http://localhost:7171"
	}

	tick := 1 * time.Second
	if tickStr := os.Getenv("TIMER_TICK_INTERVAL"); tickStr != "" {
		d, err := time.ParseDuration(tickStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMER_TICK_INTERVAL: %w", err)
		}
		tick = d
	}

	sweep := 5 * time.Minute
	if sweepStr := os.Getenv("ROOM_SWEEP_INTERVAL"); sweepStr != "" {
		d, err := time.ParseDuration(sweepStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_SWEEP_INTERVAL: %w", err)
		}
		sweep = d
	}

	window := 6 * time.Hour
	if windowStr := os.Getenv("ROOM_INACTIVITY_WINDOW"); windowStr != "" {
		d, err := time.ParseDuration(windowStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_INACTIVITY_WINDOW: %w", err)
		}
		window = d
	}

	return &Config{
		DatabaseURL:          dbURL,
		HTTPPort:             port,
		GeneratorURL:         generatorURL,
		TimerTickInterval:    tick,
		RoomSweepInterval:    sweep,
		RoomInactivityWindow: window,
		OTELEndpoint:         os.Getenv("OTEL_ENDPOINT"),
	}, nil
}
