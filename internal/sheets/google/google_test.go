package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"finbot/internal/core"
)

type fakeSheets struct {
	mu       sync.Mutex
	existing int
	updates  []update
}

type update struct {
	Path   string
	Values [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		rows := make([][]string, f.existing)
		for i := range rows {
			rows[i] = []string{"x"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": rows})
	case http.MethodPut:
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.Unmarshal(raw, &body)
		f.updates = append(f.updates, update{Path: r.URL.Path, Values: body.Values})
		f.existing += len(body.Values)
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-id",
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendTransaction(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	tx := core.Transaction{
		ID:          "t1",
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(50),
		Description: "comida",
		Category:    core.Food,
		Date:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	ref, err := c.AppendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Transacciones!A2:F2" {
		t.Errorf("first append ref = %q", ref)
	}
	if len(fake.updates) != 1 || len(fake.updates[0].Values) != 2 {
		t.Fatalf("empty sheet should receive header and row, got %+v", fake.updates)
	}
	if fake.updates[0].Values[0][0] != "Fecha" || fake.updates[0].Values[1][2] != "comida" {
		t.Errorf("unexpected values %v", fake.updates[0].Values)
	}

	ref, err = c.AppendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if ref != "Transacciones!A3:F3" || len(fake.updates[1].Values) != 1 {
		t.Errorf("second append ref = %q values=%v", ref, fake.updates[1].Values)
	}
}

func TestAppendGoal(t *testing.T) {
	fake := &fakeSheets{existing: 4}
	c := newTestClient(t, fake)
	g := core.Goal{ID: "g1", Title: "Ahorrar $1000", TargetAmount: decimal.NewFromInt(1000), CreatedAt: time.Now()}

	ref, err := c.AppendGoal(context.Background(), g)
	if err != nil {
		t.Fatalf("append goal: %v", err)
	}
	if ref != "Metas!A5:G5" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.Contains(fake.updates[0].Path, "Metas") {
		t.Errorf("update path %q should target goals sheet", fake.updates[0].Path)
	}
}

func TestAppendValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.AppendTransaction(context.Background(), core.Transaction{Type: core.Expense}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := c.AppendGoal(context.Background(), core.Goal{}); err == nil {
		t.Fatal("expected validation error")
	}
	valid := core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(1), Category: core.Other}
	if _, err := c.AppendTransaction(context.Background(), valid); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected uninitialized service error, got %v", err)
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 6: "F", 26: "Z", 27: "AA", 52: "AZ"}
	for n, want := range tests {
		if got := columnName(n); got != want {
			t.Errorf("columnName(%d) = %q, want %q", n, got, want)
		}
	}
}
