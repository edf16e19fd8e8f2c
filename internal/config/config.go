package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"settleup/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Meta webhook / WhatsApp
	VerifyToken   string
	MetaAppSecret string
	MetaToken     string
	MetaPhoneID   string
	SendTimeout   time.Duration

	// Phone number to party mapping, inline JSON or a file path
	PhoneMapJSON string
	PhoneMapFile string

	// Party display names
	PartyAName string
	PartyBName string

	// Oracle
	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Google Sheets mirror / backend
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// AMQP (optional; enables the Sheets mirror when set)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		VerifyToken:   getEnv("VERIFY_TOKEN", ""),
		MetaAppSecret: getEnv("META_APP_SECRET", ""),
		MetaToken:     getEnv("META_TOKEN", ""),
		MetaPhoneID:   getEnv("META_PHONE_ID", ""),
		SendTimeout:   getEnvDuration("SEND_TIMEOUT", 10*time.Second),

		PhoneMapJSON: getEnv("PHONE_MAP", ""),
		PhoneMapFile: getEnv("PHONE_MAP_FILE", ""),

		PartyAName: getEnv("PARTY_A_NAME", "A"),
		PartyBName: getEnv("PARTY_B_NAME", "B"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OracleTimeout: getEnvDuration("ORACLE_TIMEOUT", 10*time.Second),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/settleup.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "settleup"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_ops"),
	}
}

// PhoneParties resolves the phone-to-party mapping from inline JSON or the
// configured file. The JSON maps phone numbers to "A" or "B".
func (c *Config) PhoneParties() (map[string]core.Party, error) {
	raw := c.PhoneMapJSON
	if raw == "" && c.PhoneMapFile != "" {
		data, err := os.ReadFile(c.PhoneMapFile)
		if err != nil {
			return nil, fmt.Errorf("read phone map file: %w", err)
		}
		raw = string(data)
	}
	if raw == "" {
		return map[string]core.Party{}, nil
	}

	var plain map[string]string
	if err := json.Unmarshal([]byte(raw), &plain); err != nil {
		return nil, fmt.Errorf("parse phone map: %w", err)
	}

	phones := make(map[string]core.Party, len(plain))
	for phone, party := range plain {
		switch strings.ToUpper(strings.TrimSpace(party)) {
		case string(core.PartyA):
			phones[phone] = core.PartyA
		case string(core.PartyB):
			phones[phone] = core.PartyB
		default:
			return nil, fmt.Errorf("phone map value %q for %s: must be A or B", party, phone)
		}
	}
	return phones, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.VerifyToken == "" {
		errors = append(errors, "VERIFY_TOKEN is required for the webhook handshake")
	}
	if c.MetaToken == "" {
		errors = append(errors, "META_TOKEN is required to send replies")
	}
	if c.MetaPhoneID == "" {
		errors = append(errors, "META_PHONE_ID is required to send replies")
	}
	if c.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required for classification")
	}
	if c.OracleTimeout < time.Second || c.OracleTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid oracle timeout %v: must be between 1s and 1m", c.OracleTimeout))
	}

	if phones, err := c.PhoneParties(); err != nil {
		errors = append(errors, err.Error())
	} else if len(phones) == 0 {
		errors = append(errors, "PHONE_MAP or PHONE_MAP_FILE must map at least one phone number")
	}

	validBackends := []string{"memory", "sqlite", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when the AMQP mirror is enabled")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
