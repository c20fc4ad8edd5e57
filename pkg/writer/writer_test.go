package writer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/logging"
)

type collectMirror struct {
	got []*api.Expense
}

func (c *collectMirror) Write(_ context.Context, in <-chan *api.Expense) error {
	for e := range in {
		c.got = append(c.got, e)
	}
	return nil
}

func TestFanoutDeliversAndDrops(t *testing.T) {
	f := NewFanout(2, logging.Discard())
	f.Publish(
		api.Expense{ID: "1", Amount: decimal.NewFromInt(1)},
		api.Expense{ID: "2", Amount: decimal.NewFromInt(2)},
		api.Expense{ID: "3", Amount: decimal.NewFromInt(3)},
	)
	f.Close()
	f.Publish(api.Expense{ID: "4"})

	m := &collectMirror{}
	if err := f.Run(context.Background(), m); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(m.got) != 2 || m.got[0].ID != "1" || m.got[1].ID != "2" {
		t.Errorf("got %+v, want records 1 and 2", m.got)
	}
}

func TestFanoutCopiesRecords(t *testing.T) {
	f := NewFanout(1, logging.Discard())
	e := api.Expense{ID: "1", Description: "before"}
	f.Publish(e)
	e.Description = "after"
	f.Close()

	m := &collectMirror{}
	_ = f.Run(context.Background(), m)
	if m.got[0].Description != "before" {
		t.Errorf("got %q, want the published copy", m.got[0].Description)
	}
}

func TestNilFanout(t *testing.T) {
	var f *Fanout
	f.Publish(api.Expense{ID: "x"})
	f.Close()
}
