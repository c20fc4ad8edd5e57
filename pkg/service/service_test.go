package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/categorizer"
	"github.com/ArionMiles/smartspend/pkg/logging"
	"github.com/ArionMiles/smartspend/pkg/store/memory"
	"github.com/ArionMiles/smartspend/pkg/writer"
)

type fakeRecognizer struct {
	text      string
	err       error
	whitelist string
	calls     int
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image, whitelist string) (string, error) {
	f.calls++
	f.whitelist = whitelist
	if _, ok := img.(*image.Gray); !ok {
		return "", errors.New("recognizer expects a normalized image")
	}
	return f.text, f.err
}

type fakeAdvisor struct {
	got []string
}

func (f *fakeAdvisor) Tips(_ context.Context, phrases []string) (string, error) {
	f.got = phrases
	return "* spend less", nil
}

type collectMirror struct{ got []*api.Expense }

func (c *collectMirror) Write(_ context.Context, in <-chan *api.Expense) error {
	for e := range in {
		c.got = append(c.got, e)
	}
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.SetGray(x, 4, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	fixed := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(st, categorizer.New(categorizer.DefaultStub()), logging.Discard(), opts...), st
}

const receiptText = "SUPERMART\n" +
	"Date: 03/15/2025 Time: 10:42 AM\n" +
	"Pizza 12-34 250.00\n" +
	"Pizza 250.00\n" +
	"Total 250.00\n"

func TestProcessReceipt(t *testing.T) {
	rec := &fakeRecognizer{text: receiptText}
	fan := writer.NewFanout(10, logging.Discard())
	s, st := newService(t, WithRecognizer(rec), WithWhitelist("0-9A-Z"), WithMirror(fan))
	ctx := context.Background()

	res, err := s.ProcessReceipt(ctx, "alice", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if rec.whitelist != "0-9A-Z" {
		t.Errorf("whitelist = %q", rec.whitelist)
	}
	if res.Date != "03/15/2025" {
		t.Errorf("date = %q", res.Date)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "Pizza" || res.Items[0].Category != api.CategoryFood {
		t.Fatalf("items = %+v", res.Items)
	}

	stored, _ := st.Find(ctx, api.Filter{OwnerID: "alice"})
	if len(stored) != 1 || stored[0].Date != api.NewDate(2025, time.March, 15) || !stored[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("stored = %+v", stored)
	}

	fan.Close()
	m := &collectMirror{}
	_ = fan.Run(ctx, m)
	if len(m.got) != 1 || m.got[0].ID != stored[0].ID {
		t.Errorf("mirrored = %+v", m.got)
	}
}

func TestProcessReceiptWithoutDate(t *testing.T) {
	s, st := newService(t, WithRecognizer(&fakeRecognizer{text: "Burger 120.00\n"}))
	res, err := s.ProcessReceipt(context.Background(), "alice", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Date != "Unknown" {
		t.Errorf("date = %q, want Unknown", res.Date)
	}
	stored, _ := st.Find(context.Background(), api.Filter{OwnerID: "alice"})
	if len(stored) != 1 || !stored[0].Date.IsZero() {
		t.Errorf("stored = %+v", stored)
	}
}

func TestProcessReceiptFailuresStoreNothing(t *testing.T) {
	ctx := context.Background()

	s, st := newService(t, WithRecognizer(&fakeRecognizer{text: receiptText}))
	if _, err := s.ProcessReceipt(ctx, "alice", strings.NewReader("not an image")); !errors.Is(err, api.ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}

	boom := errors.New("ocr down")
	s2, st2 := newService(t, WithRecognizer(&fakeRecognizer{err: boom}))
	if _, err := s2.ProcessReceipt(ctx, "alice", bytes.NewReader(pngBytes(t))); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}

	for _, store := range []*memory.Store{st, st2} {
		if got, _ := store.Find(ctx, api.Filter{OwnerID: "alice"}); len(got) != 0 {
			t.Errorf("records stored after failure: %+v", got)
		}
	}

	if _, err := s.ProcessReceipt(ctx, "", bytes.NewReader(pngBytes(t))); !errors.Is(err, api.ErrMissingOwner) {
		t.Errorf("got %v, want ErrMissingOwner", err)
	}
	s3, _ := newService(t)
	if _, err := s3.ProcessReceipt(ctx, "alice", bytes.NewReader(pngBytes(t))); !errors.Is(err, ErrNoRecognizer) {
		t.Errorf("got %v, want ErrNoRecognizer", err)
	}
}

func TestProcessReceiptNoItems(t *testing.T) {
	s, _ := newService(t, WithRecognizer(&fakeRecognizer{text: "THANK YOU\n"}))
	res, err := s.ProcessReceipt(context.Background(), "alice", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("empty receipt should not fail: %v", err)
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("items = %#v, want empty", res.Items)
	}
}

func TestImportSpreadsheet(t *testing.T) {
	s, st := newService(t)
	in := "Date,Description,Amount,Category\n" +
		"2025-01-15,Pizza,250,Rent\n" +
		"garbage,Burger,100,Food\n" +
		"2025-01-16,Uber,$120.00,\n"

	res, err := s.ImportSpreadsheet(context.Background(), "alice", "expenses.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ImportSpreadsheet: %v", err)
	}
	if res.Inserted != 2 || res.Dropped != 1 {
		t.Errorf("got %+v, want 2 inserted 1 dropped", res)
	}
	stored, _ := st.Find(context.Background(), api.Filter{OwnerID: "alice"})
	if len(stored) != 2 || stored[0].Category != api.CategoryFood || stored[1].Category != api.CategoryTransport {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := s.ImportSpreadsheet(context.Background(), "alice", "expenses.pdf", strings.NewReader(in)); !errors.Is(err, api.ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestExpenseCRUDOwnership(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	if _, err := s.AddExpense(ctx, api.Expense{Description: "Pizza", Amount: decimal.NewFromInt(1)}); !errors.Is(err, api.ErrMissingOwner) {
		t.Errorf("got %v, want ErrMissingOwner", err)
	}

	e, err := s.AddExpense(ctx, api.Expense{OwnerID: "alice", Description: " Coffee ", Amount: decimal.NewFromInt(3)})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if e.ID == "" || e.Category != api.CategoryFood || e.Description != "Coffee" {
		t.Errorf("got %+v", e)
	}

	amount := decimal.NewFromInt(5)
	if err := s.UpdateExpense(ctx, e.ID, "mallory", api.ExpensePatch{Amount: &amount}); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("update wrong owner: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteExpense(ctx, e.ID, "mallory"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("delete wrong owner: got %v, want ErrNotFound", err)
	}

	got, _ := s.ListExpenses(ctx, "alice", nil, nil)
	if len(got) != 1 || !got[0].Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("record changed by another owner: %+v", got)
	}

	if err := s.UpdateExpense(ctx, e.ID, "alice", api.ExpensePatch{Amount: &amount}); err != nil {
		t.Errorf("update: %v", err)
	}
	if err := s.DeleteExpense(ctx, e.ID, "alice"); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, e.ID, "alice"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestSummaryAndProfile(t *testing.T) {
	adv := &fakeAdvisor{}
	s, st := newService(t, WithAdvisor(adv))
	ctx := context.Background()

	_, err := st.InsertMany(ctx, []api.Expense{
		{OwnerID: "alice", Date: api.NewDate(2025, time.January, 6), Description: "milk", Amount: decimal.NewFromInt(100), Category: api.CategoryGroceries},
		{OwnerID: "alice", Date: api.NewDate(2025, time.February, 3), Description: "milk", Amount: decimal.NewFromInt(150), Category: api.CategoryGroceries},
	})
	if err != nil {
		t.Fatal(err)
	}

	sum, err := s.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sum.Phrases) != 3 || sum.Phrases[0] != "High groceries spending" {
		t.Errorf("phrases = %q", sum.Phrases)
	}
	if sum.Raw.Biggest == nil || sum.Raw.Biggest.Category != api.CategoryGroceries {
		t.Errorf("raw = %+v", sum.Raw)
	}

	p, err := s.ProfileTips(ctx, "alice")
	if err != nil {
		t.Fatalf("ProfileTips: %v", err)
	}
	if p.Tips != "* spend less" || len(adv.got) != 3 {
		t.Errorf("profile = %+v, advisor saw %q", p, adv.got)
	}

	plain, _ := newService(t)
	p, err = plain.ProfileTips(ctx, "bob")
	if err != nil || p.Tips != "" || len(p.Phrases) != 0 {
		t.Errorf("without advisor: got (%+v, %v)", p, err)
	}
}

func TestSync(t *testing.T) {
	s, st := newService(t)
	log := "date,description,amount,category,owner_id\n" +
		"2025-01-02,Coffee,3.50,Food,alice\n" +
		"2025-01-03,Laptop,900,Electronics,bob\n" +
		"2025-01-04,Legacy,5.00,Groceries,\n" +
		",Undated,1.00,Other,alice\n"

	res, err := s.Sync(context.Background(), "alice", strings.NewReader(log))
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Synced != 2 || res.Skipped != 2 {
		t.Errorf("got %+v, want 2 synced 2 skipped", res)
	}
	stored, _ := st.Find(context.Background(), api.Filter{OwnerID: "alice"})
	if len(stored) != 2 || stored[1].Category != api.CategoryGroceries || stored[1].OwnerID != "alice" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestSeed(t *testing.T) {
	s, st := newService(t)
	n, err := s.Seed(context.Background(), "demo", 5, rand.New(rand.NewPCG(1, 2)))
	if err != nil || n != 15 {
		t.Fatalf("Seed: got (%d, %v), want 15", n, err)
	}

	stored, _ := st.Find(context.Background(), api.Filter{OwnerID: "demo"})
	months := map[string]bool{}
	for _, e := range stored {
		months[e.Date.MonthKey()] = true
		if err := e.Validate(); err != nil || !e.Amount.IsPositive() {
			t.Errorf("seeded record invalid: %+v", e)
		}
	}
	for _, m := range []string{"2025-01", "2025-02", "2025-03"} {
		if !months[m] {
			t.Errorf("no records seeded in %s", m)
		}
	}
}
