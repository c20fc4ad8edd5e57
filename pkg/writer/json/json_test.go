package json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/logging"
)

func write(t *testing.T, path string, records ...*api.Expense) *Writer {
	t.Helper()
	w, err := New(Config{FilePath: path}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make(chan *api.Expense, len(records))
	for _, r := range records {
		in <- r
	}
	close(in)
	if err := w.Write(context.Background(), in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return w
}

func TestWriterKeepsExistingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	write(t, path, &api.Expense{ID: "1", OwnerID: "a", Amount: decimal.NewFromInt(5), Category: api.CategoryFood})
	w := write(t, path, &api.Expense{ID: "2", OwnerID: "a", Amount: decimal.NewFromInt(7), Category: api.CategoryRent})

	if w.Count() != 2 {
		t.Errorf("Count = %d, want 2", w.Count())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []api.Expense
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].Category != api.CategoryRent {
		t.Errorf("got %+v", got)
	}
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{FilePath: path}, logging.Discard()); err == nil {
		t.Error("expected an error for a corrupt file")
	}
}
