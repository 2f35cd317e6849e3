package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRepresentatives is the allow-list used when SALES_REPRESENTATIVES is unset.
var DefaultRepresentatives = []string{
	"相川直輝", "佐々木亮", "高橋和大", "衛本楓河",
	"野沢響", "室伏夕", "湯浅華", "佐々木信", "韓国",
}

// Columns holds the spreadsheet header names the dashboard reads.
type Columns struct {
	OrderDate    string
	DeliveryDate string
	Revenue      string
	GrossProfit  string
	FlowType     string
	Phase        string
	RepPrimary   string
	RepSecondary string
}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Local workbook
	XLSXPath  string
	XLSXSheet string

	// Memory backend seed directory
	SeedDir string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Fiscal calendar and schema
	FiscalBaseYear    int
	Representatives   []string
	Columns           Columns
	AmountDecorations string

	// Caching and refresh
	CacheTTL        time.Duration
	RefreshInterval time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		XLSXPath:  getEnv("XLSX_PATH", ""),
		XLSXSheet: getEnv("XLSX_SHEET", ""),

		SeedDir:      getEnv("SEED_DIR", "data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/salesdash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "salesdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_source"),

		FiscalBaseYear:  getEnvInt("FISCAL_BASE_YEAR", 2022),
		Representatives: getEnvList("SALES_REPRESENTATIVES", DefaultRepresentatives),
		Columns: Columns{
			OrderDate:    getEnv("COLUMN_ORDER_DATE", "受注日"),
			DeliveryDate: getEnv("COLUMN_DELIVERY_DATE", "納品日"),
			Revenue:      getEnv("COLUMN_REVENUE", "金額"),
			GrossProfit:  getEnv("COLUMN_GROSS_PROFIT", "粗利"),
			FlowType:     getEnv("COLUMN_FLOW_TYPE", "商流"),
			Phase:        getEnv("COLUMN_PHASE", "フェーズ"),
			RepPrimary:   getEnv("REP_COLUMN_PRIMARY", "担当営業A"),
			RepSecondary: getEnv("REP_COLUMN_SECONDARY", "担当営業B"),
		},
		AmountDecorations: getEnv("AMOUNT_DECORATIONS", ""),

		CacheTTL:        getEnvDuration("CACHE_TTL", 10*time.Minute),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "xlsx", "sqlite"}
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

	switch c.DataBackend {
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	case "xlsx":
		if c.XLSXPath == "" {
			errors = append(errors, "XLSX path is required when using xlsx backend")
		} else if _, err := os.Stat(c.XLSXPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("XLSX workbook does not exist: %s", c.XLSXPath))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
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
	}

	if c.FiscalBaseYear < 1900 || c.FiscalBaseYear > 3000 {
		errors = append(errors, fmt.Sprintf("invalid fiscal base year %d: must be between 1900 and 3000", c.FiscalBaseYear))
	}

	if len(c.Representatives) == 0 {
		errors = append(errors, "representative allow-list cannot be empty")
	}

	required := map[string]string{
		"COLUMN_ORDER_DATE":    c.Columns.OrderDate,
		"COLUMN_DELIVERY_DATE": c.Columns.DeliveryDate,
		"COLUMN_REVENUE":       c.Columns.Revenue,
		"COLUMN_FLOW_TYPE":     c.Columns.FlowType,
		"REP_COLUMN_PRIMARY":   c.Columns.RepPrimary,
	}
	for _, key := range []string{"COLUMN_ORDER_DATE", "COLUMN_DELIVERY_DATE", "COLUMN_REVENUE", "COLUMN_FLOW_TYPE", "REP_COLUMN_PRIMARY"} {
		if strings.TrimSpace(required[key]) == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", key))
		}
	}
	if c.Columns.RepSecondary != "" && c.Columns.RepSecondary == c.Columns.RepPrimary {
		errors = append(errors, fmt.Sprintf("representative columns must differ, both are '%s'", c.Columns.RepPrimary))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SourceName describes the configured data source for logs and the page footer.
func (c *Config) SourceName() string {
	switch c.DataBackend {
	case "sheets":
		return "sheets:" + c.GoogleSpreadsheetID
	case "xlsx":
		return "xlsx:" + c.XLSXPath
	case "sqlite":
		return "sqlite:" + c.SQLiteDBPath
	default:
		return "memory:" + c.SeedDir
	}
}

// ParseLogLevel maps LOG_LEVEL values to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

// getEnvList splits a comma separated value, dropping blanks and duplicates.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return append([]string(nil), defaultValue...)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
