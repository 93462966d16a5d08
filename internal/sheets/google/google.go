package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	ports "cardledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Activity"); the row's year is prefixed.
	activityBase string

	mu       sync.Mutex
	headered map[string]bool
}

var _ ports.ActivityWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Activity").
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return NewWithSpreadsheet(ctx,
		os.Getenv("GOOGLE_SPREADSHEET_ID"),
		os.Getenv("GOOGLE_SHEET_NAME"))
}

// NewWithSpreadsheet creates a Sheets client for an explicit spreadsheet,
// reading only the credentials from the environment.
func NewWithSpreadsheet(ctx context.Context, spreadsheetID, base string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	base = strings.TrimSpace(base)
	if base == "" {
		base = "Activity"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return New(svc, spreadsheetID, base), nil
}

func New(svc *gsheet.Service, spreadsheetID, activityBase string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		activityBase:  activityBase,
		headered:      make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes rows to the activity sheet of each row's year.
func (c *Client) Append(ctx context.Context, rows ...ports.ActivityRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	var refs []string
	for _, group := range groupByYear(rows) {
		sheet := yearPrefixedName(c.activityBase, group.year)
		if err := c.ensureHeader(ctx, sheet); err != nil {
			return "", err
		}

		values := make([][]any, 0, len(group.rows))
		for _, r := range group.rows {
			values = append(values, r.Values())
		}
		vr := &gsheet.ValueRange{Values: values}
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:G", vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
		}
		if resp.Updates != nil {
			refs = append(refs, resp.Updates.UpdatedRange)
		}
	}
	return strings.Join(refs, ","), nil
}

// ensureHeader writes ActivityHeader into an empty sheet once per process.
func (c *Client) ensureHeader(ctx context.Context, sheet string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headered[sheet] {
		return nil
	}

	rng := sheet + "!A1:G1"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		header := make([]any, len(ports.ActivityHeader))
		for i, h := range ports.ActivityHeader {
			header[i] = h
		}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, err)
		}
		slog.InfoContext(ctx, "Wrote activity header", "sheet", sheet)
	}
	c.headered[sheet] = true
	return nil
}

type yearRows struct {
	year int
	rows []ports.ActivityRow
}

// groupByYear keeps the input order within and across years.
func groupByYear(rows []ports.ActivityRow) []yearRows {
	var out []yearRows
	for _, r := range rows {
		y := r.Timestamp.UTC().Year()
		if r.Timestamp.IsZero() {
			y = time.Now().UTC().Year()
		}
		if n := len(out); n > 0 && out[n-1].year == y {
			out[n-1].rows = append(out[n-1].rows, r)
			continue
		}
		out = append(out, yearRows{year: y, rows: []ports.ActivityRow{r}})
	}
	return out
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
