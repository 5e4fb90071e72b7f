package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finbot/internal/core"
	"finbot/internal/log"
	ports "finbot/internal/sheets"
)

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	goalsSheet        string
	logger            *log.Logger
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	GoalsSheet        string

	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON []byte
	CredentialsFile string

	// Options are appended after the credential options; tests use them to
	// point the client at a local server.
	Options []goption.ClientOption
}

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.TransactionsSheet == "" {
		cfg.TransactionsSheet = "Transacciones"
	}
	if cfg.GoalsSheet == "" {
		cfg.GoalsSheet = "Metas"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		transactionsSheet: cfg.TransactionsSheet,
		goalsSheet:        cfg.GoalsSheet,
		logger:            log.NewLogger(log.ComponentSheets),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var opts []goption.ClientOption

	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, goption.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(raw))
	case len(cfg.Options) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))
	opts = append(opts, cfg.Options...)

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes tx as the next row of the transactions sheet.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return c.appendRow(ctx, c.transactionsSheet, ports.TransactionHeader, ports.TransactionRow(tx))
}

// AppendGoal writes the goal's current state as the next row of the goals sheet.
func (c *Client) AppendGoal(ctx context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return c.appendRow(ctx, c.goalsSheet, ports.GoalHeader, ports.GoalRow(g))
}

// appendRow finds the next empty row from column A and writes row there. An
// empty sheet gets the header first.
func (c *Client) appendRow(ctx context.Context, sheet string, header, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}

	nextRow := len(resp.Values) + 1
	values := [][]any{row}
	if nextRow == 1 {
		values = [][]any{header, row}
	}
	lastRow := nextRow + len(values) - 1
	lastCol := columnName(len(row))

	dataRange := fmt.Sprintf("%s!A%d:%s%d", sheet, nextRow, lastCol, lastRow)
	vr := &gsheet.ValueRange{Values: values}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	ref := fmt.Sprintf("%s!A%d:%s%d", sheet, lastRow, lastCol, lastRow)
	c.logger.DebugContext(ctx, "Appended row", "range", ref)
	return ref, nil
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
