package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" or "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	// Base URL of the web service; reset links are FrontendBase + ResetPath + "?token=..."
	FrontendBase string `json:"frontend_base"`
	ResetPath    string `json:"reset_path"`

	Reset struct {
		ExpiryMinutes    int `json:"expiry_minutes"`
		PollSeconds      int `json:"poll_seconds"`
		BatchLimit       int `json:"batch_limit"`
		MaxSendAttempts  int `json:"max_send_attempts"`
		SweepEveryCycles int `json:"sweep_every_cycles"`
	} `json:"reset"`

	Telegram struct {
		BotToken    string `json:"bot_token"`
		PollSeconds int    `json:"poll_seconds"`
	} `json:"telegram"`

	Smtp struct {
		Host string `json:"host"`
		Port int    `json:"port"`
		User string `json:"user"`
		Pass string `json:"pass"`
		From string `json:"from"`
	} `json:"smtp"`

	// Empty disables rate limiting on the forgot endpoint.
	RedisAddr string `json:"redis_addr"`

	Security struct {
		JwtSecret        string `json:"jwt_secret"`
		ForgotRateLimit  int    `json:"forgot_rate_limit"`
		ForgotRateWinSec int    `json:"forgot_rate_window_seconds"`
	} `json:"security"`
}

func Get(path string) Configuration {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var c Configuration
	if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}

	// defaults (avoid annoying nil/zero values)
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.FrontendBase == "" {
		c.FrontendBase = "http://localhost:8080"
	}
	if c.ResetPath == "" {
		c.ResetPath = "/reset"
	}
	if c.Reset.ExpiryMinutes <= 0 {
		c.Reset.ExpiryMinutes = 60
	}
	if c.Reset.PollSeconds <= 0 {
		c.Reset.PollSeconds = 3
	}
	if c.Reset.BatchLimit <= 0 {
		c.Reset.BatchLimit = 25
	}
	if c.Reset.MaxSendAttempts <= 0 {
		c.Reset.MaxSendAttempts = 5
	}
	if c.Reset.SweepEveryCycles <= 0 {
		c.Reset.SweepEveryCycles = 20
	}
	if c.Telegram.PollSeconds <= 0 {
		c.Telegram.PollSeconds = 25
	}
	if c.Smtp.Port <= 0 {
		c.Smtp.Port = 587
	}
	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.ForgotRateLimit <= 0 {
		c.Security.ForgotRateLimit = 5
	}
	if c.Security.ForgotRateWinSec <= 0 {
		c.Security.ForgotRateWinSec = 900
	}

	// secrets can come from env so they stay out of config.json
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Security.JwtSecret = v
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.Smtp.Pass = v
	}

	return c
}
