package proxy

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultFeedURL    = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-nqrw"
	defaultWeatherURL = "https://api.open-meteo.com/v1/forecast?latitude=40.7506&longitude=-73.9935" +
		"&hourly=temperature_2m,precipitation,visibility,is_day,weather_code" +
		"&current=temperature_2m,precipitation,weather_code,rain,showers,snowfall,is_day" +
		"&timezone=America%2FNew_York&forecast_days=3&wind_speed_unit=mph" +
		"&temperature_unit=fahrenheit&precipitation_unit=inch"
)

type Config struct {
	Port       int
	FeedURL    string
	APIKey     string
	NorthStop  string
	SouthStop  string
	WeatherURL string
	Timeout    time.Duration
	LogLevel   string
}

// LoadConfig reads a .env file if present and then the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()
	return &Config{
		Port:       getEnvInt("PORT", 8787),
		FeedURL:    getEnv("MTA_FEED_URL", defaultFeedURL),
		APIKey:     getEnv("MTA_API_KEY", ""),
		NorthStop:  getEnv("NORTH_STOP", "R17N"),
		SouthStop:  getEnv("SOUTH_STOP", "R17S"),
		WeatherURL: getEnv("WEATHER_URL", defaultWeatherURL),
		Timeout:    getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
