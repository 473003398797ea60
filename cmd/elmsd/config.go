package main

import (
	"time"

	"elms-extractor/internal/scrapers/elms"
)

type SessionConfig struct {
	TtlSeconds             int `json:"ttl_seconds"`
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds"`
}

type Config struct {
	BaseUrl string             `json:"base_url"`
	Port    int                `json:"port"`
	LogJson bool               `json:"log_json"`
	Session SessionConfig      `json:"session"`
	Scraper elms.ScraperConfig `json:"scraper"`
}

func (c Config) withDefaults() Config {
	if c.BaseUrl == "" {
		c.BaseUrl = "https://elms.uiu.ac.bd"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Session.TtlSeconds <= 0 {
		c.Session.TtlSeconds = 30 * 60
	}
	if c.Session.CleanupIntervalSeconds <= 0 {
		c.Session.CleanupIntervalSeconds = 60
	}
	return c
}

func (c Config) ttl() time.Duration {
	return time.Duration(c.Session.TtlSeconds) * time.Second
}

func (c Config) cleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalSeconds) * time.Second
}
