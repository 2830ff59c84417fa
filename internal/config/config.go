// Package config loads every runtime setting from the environment. Loading
// fails closed: a missing required value, an unreadable cover image or a
// malformed sun table aborts startup before anything is scheduled.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"coverchanger/internal/cover"
	"coverchanger/internal/phase"
	"coverchanger/internal/suntimes"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Default location: London.
const (
	defaultLatitude  = 51.5074
	defaultLongitude = -0.1278
)

// Config holds every runtime setting.
type Config struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
	PlaylistID          string

	// Images maps each phase to the cover file uploaded at its start.
	Images map[phase.Phase]string

	// MorningDuration is how long after sunrise the morning phase lasts;
	// EveningDuration is how long before sunset the evening phase starts.
	MorningDuration time.Duration
	EveningDuration time.Duration

	// TimeOffset is a fixed-hour adjustment applied to every sun time, for
	// hosts whose base timezone differs from the desired local convention.
	TimeOffset time.Duration

	Latitude  float64
	Longitude float64

	SunSource suntimes.Mode
	SunTable  suntimes.MonthlyTable

	// OverrideTimes is the raw PHASE_TIMES value ("HH:MM,HH:MM,HH:MM,HH:MM"),
	// parsed later so a malformed value can fall back to solar mode without
	// aborting startup.
	OverrideTimes string

	StateFile    string
	MisfireGrace time.Duration
	StatusPort   int
}

// Load reads configuration from the environment and validates it.
func Load(logger *zap.Logger) (*Config, error) {
	cfg := &Config{
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
		PlaylistID:          os.Getenv("COVER_CHANGE_PLAYLIST_ID"),
		OverrideTimes:       os.Getenv("PHASE_TIMES"),
		StateFile:           envString("STATE_FILE", "cover_state.json"),
	}

	var missing []string
	for _, required := range []struct{ key, value string }{
		{"SPOTIFY_CLIENT_ID", cfg.SpotifyClientID},
		{"SPOTIFY_CLIENT_SECRET", cfg.SpotifyClientSecret},
		{"SPOTIFY_REFRESH_TOKEN", cfg.SpotifyRefreshToken},
		{"COVER_CHANGE_PLAYLIST_ID", cfg.PlaylistID},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	var err error
	if cfg.MorningDuration, err = envHours("MORNING_DURATION", 3); err != nil {
		return nil, err
	}
	if cfg.EveningDuration, err = envHours("EVENING_DURATION", 2); err != nil {
		return nil, err
	}
	if cfg.MorningDuration < 0 || cfg.EveningDuration < 0 {
		return nil, fmt.Errorf("phase durations must be non-negative")
	}

	// Default +1h matches a UTC host tracking BST.
	if cfg.TimeOffset, err = envHours("TIME_OFFSET", 1); err != nil {
		return nil, err
	}

	if cfg.Latitude, err = envFloat("LATITUDE", defaultLatitude); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = envFloat("LONGITUDE", defaultLongitude); err != nil {
		return nil, err
	}

	if cfg.SunSource, err = suntimes.ParseMode(envString("SUN_SOURCE", string(suntimes.ModeAPI))); err != nil {
		return nil, err
	}

	if cfg.SunTable, err = loadSunTable(os.Getenv("SUN_TABLE_FILE")); err != nil {
		return nil, err
	}

	if cfg.MisfireGrace, err = envHours("MISFIRE_GRACE", 1); err != nil {
		return nil, err
	}
	if cfg.MisfireGrace < 0 {
		return nil, fmt.Errorf("MISFIRE_GRACE must be non-negative")
	}

	if cfg.StatusPort, err = envInt("STATUS_PORT", 0); err != nil {
		return nil, err
	}

	if cfg.Images, err = loadImages(); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("playlist_id", cfg.PlaylistID),
		zap.Duration("morning_duration", cfg.MorningDuration),
		zap.Duration("evening_duration", cfg.EveningDuration),
		zap.Duration("time_offset", cfg.TimeOffset),
		zap.Float64("latitude", cfg.Latitude),
		zap.Float64("longitude", cfg.Longitude),
		zap.String("sun_source", string(cfg.SunSource)),
		zap.Bool("override_requested", cfg.OverrideTimes != ""))

	return cfg, nil
}

// loadImages resolves and verifies the four cover image files. Every phase
// needs a readable image no larger than Spotify's upload limit.
func loadImages() (map[phase.Phase]string, error) {
	images := map[phase.Phase]string{
		phase.Morning: envString("MORNING_IMAGE_PATH", "images/morning.jpg"),
		phase.Day:     envString("DAY_IMAGE_PATH", "images/day.jpg"),
		phase.Evening: envString("EVENING_IMAGE_PATH", "images/evening.jpg"),
		phase.Night:   envString("NIGHT_IMAGE_PATH", "images/night.jpg"),
	}

	for p, path := range images {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s image path %q: %w", p, path, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%s image file not found: %s", p, abs)
		}
		if info.Size() > cover.MaxImageBytes {
			return nil, fmt.Errorf("%s image exceeds the %d byte upload limit: %s (%d bytes)",
				p, cover.MaxImageBytes, abs, info.Size())
		}

		images[p] = abs
	}

	return images, nil
}

// sunTableFile is the YAML shape of an operator-supplied monthly sun table.
// Months are numbered 1-12; omitted months keep the built-in defaults.
type sunTableFile struct {
	Months map[int]suntimes.DayTimes `yaml:"months"`
}

func loadSunTable(path string) (suntimes.MonthlyTable, error) {
	table := suntimes.DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sun table file: %w", err)
	}

	var file sunTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sun table file: %w", err)
	}

	for month, entry := range file.Months {
		if month < 1 || month > 12 {
			return nil, fmt.Errorf("sun table month out of range: %d", month)
		}
		if _, err := time.Parse("15:04", entry.Sunrise); err != nil {
			return nil, fmt.Errorf("sun table month %d has invalid sunrise %q", month, entry.Sunrise)
		}
		if _, err := time.Parse("15:04", entry.Sunset); err != nil {
			return nil, fmt.Errorf("sun table month %d has invalid sunset %q", month, entry.Sunset)
		}
		table[time.Month(month)] = entry
	}

	return table, nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

// envHours reads a fractional hour count (the original configuration unit)
// as a time.Duration.
func envHours(key string, fallback float64) (time.Duration, error) {
	hours, err := envFloat(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(hours * float64(time.Hour)), nil
}
