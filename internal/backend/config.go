package backend

import (
	"fmt"

	"salesdash/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Workbook specific
	XLSXPath  string
	XLSXSheet string

	// Memory backend specific
	DataDirectory string

	// SQLite mirror
	SQLiteDBPath string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		XLSXPath:            appConfig.XLSXPath,
		XLSXSheet:           appConfig.XLSXSheet,
		DataDirectory:       appConfig.SeedDir,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case XLSXBackend:
		if c.XLSXPath == "" {
			return fmt.Errorf("XLSX path is required for xlsx backend")
		}
	}
	return nil
}

// LiveType is the backend holding the authoritative data. For the sqlite
// mirror it is the sheets backend when a spreadsheet is configured, then the
// workbook, then the memory seed.
func (c Config) LiveType() BackendType {
	if c.Type != SQLiteBackend {
		return c.Type
	}
	switch {
	case c.GoogleSpreadsheetID != "":
		return SheetsBackend
	case c.XLSXPath != "":
		return XLSXBackend
	default:
		return MemoryBackend
	}
}
