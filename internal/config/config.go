package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Multi-account detector knobs. Window is how close in time two
	// registrations must be to correlate; threshold is the correlated-account
	// count at which severity becomes HIGH.
	FraudWindowSecs     int
	FraudBurstThreshold int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "peerfund"),
		MySQLUser: getenv("MYSQL_USER", "peerfund"),
		MySQLPass: getenv("MYSQL_PASS", "peerfund"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		FraudWindowSecs:     getenvInt("FRAUD_WINDOW_SECONDS", 3600),
		FraudBurstThreshold: getenvInt("FRAUD_BURST_THRESHOLD", 5),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.FraudWindowSecs <= 0 || c.FraudBurstThreshold <= 0 {
		return errors.New("fraud detector window and threshold must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime is required for DATETIME scanning into time.Time
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
