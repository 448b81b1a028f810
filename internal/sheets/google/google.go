// Package google writes dashboard snapshots to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/sheets"
)

const defaultSheetName = "Snapshots"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; each year gets its own "<year> <name>" tab.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME and the
// service account from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: file,
	}
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ sheets.SnapshotWriter = (*Exporter)(nil)

// New authenticates with the service account in cfg.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", cfg.SpreadsheetID)
	return newExporter(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

func newExporter(svc *gsheet.Service, spreadsheetID, sheetName string) *Exporter {
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetName}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteSnapshot appends one row to the snapshot year's tab and returns the
// A1 range the API reports as written.
func (e *Exporter) WriteSnapshot(ctx context.Context, s sheets.Snapshot) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(e.sheetBase, s.Year)
	rng := fmt.Sprintf("%s!A:%s", sheet, columnName(len(sheets.Header)))
	vr := &gsheet.ValueRange{Values: [][]any{s.Values()}}

	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append snapshot to %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Snapshot exported",
		"sheets_ref", ref,
		"user_id", s.OwnerID,
		"year", s.Year,
		"month", s.Month)
	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
