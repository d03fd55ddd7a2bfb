package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	applog "contahogar/internal/log"
	"contahogar/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Connector opens a Google Sheets worksheet per call. No service or HTTP
// connection outlives a single Connect.
type Connector struct {
	spreadsheetID string
	// Worksheet title; empty means the first worksheet of the spreadsheet.
	sheetName string
	opts      []goption.ClientOption
}

// Worksheet is an open Google Sheets tab.
type Worksheet struct {
	svc           *gsheet.Service
	spreadsheetID string
	title         string
}

// Ensure interface conformance
var (
	_ sheets.Connector = (*Connector)(nil)
	_ sheets.Sheet     = (*Worksheet)(nil)
)

// New creates a connector with explicit client options.
func New(spreadsheetID, sheetName string, opts ...goption.ClientOption) *Connector {
	return &Connector{
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     strings.TrimSpace(sheetName),
		opts:          opts,
	}
}

// NewFromEnv creates a connector using environment variables.
// Required: GOOGLE_SPREADSHEET_ID and one of GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default: first worksheet).
func NewFromEnv(ctx context.Context) (*Connector, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadServiceAccount(ctx)
	if err != nil {
		return nil, err
	}

	return New(spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"),
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	), nil
}

// loadServiceAccount reads the service-account blob. The content is opaque
// here; the auth library validates it when a service is created.
func loadServiceAccount(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials", applog.FieldComponent, applog.ComponentSheets, "json_length", len(serviceAccountJSON))
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", applog.FieldComponent, applog.ComponentSheets, "path", serviceAccountFile, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Connect authorizes, opens the spreadsheet and resolves the worksheet title.
func (c *Connector) Connect(ctx context.Context) (sheets.Sheet, error) {
	if c.spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	title := c.sheetName
	if title == "" {
		title, err = firstSheetTitle(ctx, svc, c.spreadsheetID)
		if err != nil {
			return nil, err
		}
	}

	slog.DebugContext(ctx, "Opened worksheet", applog.FieldComponent, applog.ComponentSheets, "spreadsheet_id", c.spreadsheetID, "sheet", title)
	return &Worksheet{svc: svc, spreadsheetID: c.spreadsheetID, title: title}, nil
}

func firstSheetTitle(ctx context.Context, svc *gsheet.Service, spreadsheetID string) (string, error) {
	ss, err := svc.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", spreadsheetID)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// Title returns the resolved worksheet title.
func (w *Worksheet) Title() string {
	return w.title
}

func (w *Worksheet) FirstCell(ctx context.Context) (string, error) {
	rng := a1Range(w.title, "A1")
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(resp.Values[0][0])), nil
}

func (w *Worksheet) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	rng := a1Range(w.title, "A1")
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, rng, vr).
		// RAW keeps the date text and integer amounts exactly as exported.
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), w.title, err)
	}

	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Rows appended to Google Sheets", applog.FieldComponent, applog.ComponentSheets,
		"sheet", w.title,
		applog.FieldRows, len(rows),
		"updated_range", updated)
	return nil
}

// a1Range quotes a worksheet title for A1 notation: 'Hoja 1'!A1.
func a1Range(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}
