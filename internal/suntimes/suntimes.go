// Package suntimes resolves sunrise and sunset instants for a calendar day.
//
// The default mode queries the sunrise-sunset.org REST API and converts the
// UTC results to local time. Any network or parse failure falls back to a
// static monthly table of approximate times, so a lookup always produces a
// best-effort result and never returns an error. A purely local mode computes
// the times astronomically instead, for hosts without network egress.
package suntimes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"go.uber.org/zap"
)

// Mode selects how sun times are obtained.
type Mode string

const (
	// ModeAPI queries the remote service, falling back to the monthly table.
	ModeAPI Mode = "api"
	// ModeLocal computes sunrise/sunset astronomically from the coordinates.
	ModeLocal Mode = "local"
	// ModeTable uses only the static monthly table.
	ModeTable Mode = "table"
)

// ParseMode validates a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAPI, ModeLocal, ModeTable:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid sun source %q (want api, local or table)", s)
	}
}

// DayTimes is a pair of approximate HH:MM clock times for one month.
type DayTimes struct {
	Sunrise string `yaml:"sunrise"`
	Sunset  string `yaml:"sunset"`
}

// MonthlyTable maps a calendar month to approximate sunrise/sunset times.
type MonthlyTable map[time.Month]DayTimes

// DefaultTable returns approximate sunrise/sunset times for London.
func DefaultTable() MonthlyTable {
	return MonthlyTable{
		time.January:   {Sunrise: "08:00", Sunset: "16:00"},
		time.February:  {Sunrise: "07:30", Sunset: "17:00"},
		time.March:     {Sunrise: "06:30", Sunset: "18:00"},
		time.April:     {Sunrise: "06:00", Sunset: "19:30"},
		time.May:       {Sunrise: "05:00", Sunset: "20:30"},
		time.June:      {Sunrise: "04:30", Sunset: "21:00"},
		time.July:      {Sunrise: "05:00", Sunset: "21:00"},
		time.August:    {Sunrise: "05:30", Sunset: "20:00"},
		time.September: {Sunrise: "06:30", Sunset: "19:00"},
		time.October:   {Sunrise: "07:00", Sunset: "17:30"},
		time.November:  {Sunrise: "07:30", Sunset: "16:00"},
		time.December:  {Sunrise: "08:00", Sunset: "15:45"},
	}
}

const defaultBaseURL = "https://api.sunrise-sunset.org/json"

// Source resolves sunrise and sunset for a location.
type Source struct {
	mode      Mode
	latitude  float64
	longitude float64
	offset    time.Duration
	table     MonthlyTable
	client    *http.Client
	baseURL   string
	logger    *zap.Logger
}

// NewSource creates a sun time source. offset is a fixed-hour adjustment
// applied to every result, compensating for a host whose base timezone
// differs from the desired local convention. table may be nil to use the
// built-in defaults.
func NewSource(mode Mode, latitude, longitude float64, offset time.Duration, table MonthlyTable, logger *zap.Logger) *Source {
	if table == nil {
		table = DefaultTable()
	}
	return &Source{
		mode:      mode,
		latitude:  latitude,
		longitude: longitude,
		offset:    offset,
		table:     table,
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultBaseURL,
		logger:    logger.Named("suntimes"),
	}
}

// SunTimes returns sunrise and sunset instants for the calendar day of date,
// in date's location with the configured offset applied. It never fails.
func (s *Source) SunTimes(date time.Time) (time.Time, time.Time) {
	switch s.mode {
	case ModeLocal:
		return s.astronomical(date)
	case ModeTable:
		return s.fromTable(date)
	default:
		sunrise, sunset, err := s.fromAPI(date)
		if err != nil {
			s.logger.Warn("Remote sun time lookup failed, using fallback table", zap.Error(err))
			return s.fromTable(date)
		}
		return sunrise, sunset
	}
}

// apiResponse mirrors the sunrise-sunset.org JSON payload (formatted=0 gives
// ISO 8601 timestamps in UTC).
type apiResponse struct {
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
	Status string `json:"status"`
}

func (s *Source) fromAPI(date time.Time) (time.Time, time.Time, error) {
	url := fmt.Sprintf("%s?lat=%f&lng=%f&date=%s&formatted=0",
		s.baseURL, s.latitude, s.longitude, date.Format("2006-01-02"))

	resp, err := s.client.Get(url)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to query sun time service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, time.Time{}, fmt.Errorf("sun time service returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to decode sun time response: %w", err)
	}
	if payload.Status != "OK" {
		return time.Time{}, time.Time{}, fmt.Errorf("sun time service status %q", payload.Status)
	}

	sunriseUTC, err := time.Parse(time.RFC3339, payload.Results.Sunrise)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse sunrise %q: %w", payload.Results.Sunrise, err)
	}
	sunsetUTC, err := time.Parse(time.RFC3339, payload.Results.Sunset)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse sunset %q: %w", payload.Results.Sunset, err)
	}

	sunriseLocal := sunriseUTC.In(date.Location()).Add(s.offset)
	sunsetLocal := sunsetUTC.In(date.Location()).Add(s.offset)

	s.logger.Info("Sun times fetched",
		zap.Time("sunrise", sunriseLocal),
		zap.Time("sunset", sunsetLocal),
		zap.Duration("offset", s.offset))

	return sunriseLocal, sunsetLocal, nil
}

func (s *Source) astronomical(date time.Time) (time.Time, time.Time) {
	rise, set := sunrise.SunriseSunset(
		s.latitude, s.longitude,
		date.Year(), date.Month(), date.Day(),
	)

	sunriseLocal := rise.In(date.Location()).Add(s.offset)
	sunsetLocal := set.In(date.Location()).Add(s.offset)

	s.logger.Info("Sun times computed locally",
		zap.Time("sunrise", sunriseLocal),
		zap.Time("sunset", sunsetLocal))

	return sunriseLocal, sunsetLocal
}

func (s *Source) fromTable(date time.Time) (time.Time, time.Time) {
	entry, ok := s.table[date.Month()]
	if !ok {
		// Config validation keeps the table complete; this is a guard only.
		entry = DayTimes{Sunrise: "08:00", Sunset: "16:00"}
	}

	sunriseLocal := combine(date, entry.Sunrise, 8, 0).Add(s.offset)
	sunsetLocal := combine(date, entry.Sunset, 16, 0).Add(s.offset)

	s.logger.Info("Using fallback sun times",
		zap.Time("sunrise", sunriseLocal),
		zap.Time("sunset", sunsetLocal))

	return sunriseLocal, sunsetLocal
}

// combine merges an HH:MM clock time with date's calendar day, keeping
// date's location. Unparseable entries get the supplied defaults.
func combine(date time.Time, clock string, defaultHour, defaultMinute int) time.Time {
	hour, minute := defaultHour, defaultMinute
	if parsed, err := time.Parse("15:04", clock); err == nil {
		hour, minute = parsed.Hour(), parsed.Minute()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}
