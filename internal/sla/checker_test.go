package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
)

type fakeSource struct {
	protocols []models.Protocol
	alerted   map[string]time.Time
	cutoff    time.Time
}

func (f *fakeSource) Overdue(ctx context.Context, cutoff time.Time) ([]models.Protocol, error) {
	f.cutoff = cutoff
	var out []models.Protocol
	for _, p := range f.protocols {
		if _, done := f.alerted[p.ID]; !done && p.Status != models.StatusClosed && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSource) MarkAlerted(ctx context.Context, id string, at time.Time) error {
	f.alerted[id] = at
	return nil
}

type fakeNotifier struct {
	failFor map[string]bool
	sent    []notify.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n notify.Notification) error {
	if f.failFor[n.ProtocolID] {
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestCheckOnceAlertsOnce(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{alerted: map[string]time.Time{}, protocols: []models.Protocol{
		{ID: "old", Number: "PRT-1", Status: models.StatusOpen, CreatedAt: now.Add(-72 * time.Hour)},
		{ID: "fresh", Number: "PRT-2", Status: models.StatusOpen, CreatedAt: now.Add(-time.Hour)},
		{ID: "closed", Number: "PRT-3", Status: models.StatusClosed, CreatedAt: now.Add(-96 * time.Hour)},
		{ID: "flaky", Number: "PRT-4", Status: models.StatusInProgress, CreatedAt: now.Add(-50 * time.Hour)},
	}}
	notifier := &fakeNotifier{failFor: map[string]bool{"flaky": true}}
	c := NewChecker(src, notifier, 48*time.Hour, nil)
	c.now = func() time.Time { return now }

	n, err := c.CheckOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("CheckOnce = %d, %v; want 1 alert", n, err)
	}
	if !src.cutoff.Equal(now.Add(-48 * time.Hour)) {
		t.Errorf("cutoff = %v", src.cutoff)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Number != "PRT-1" || notifier.sent[0].Kind != notify.KindSLAOverdue {
		t.Errorf("sent = %+v", notifier.sent)
	}
	if _, ok := src.alerted["flaky"]; ok {
		t.Error("failed delivery must not be stamped")
	}

	notifier.failFor = nil
	n, _ = c.CheckOnce(context.Background())
	if n != 1 || notifier.sent[1].Number != "PRT-4" {
		t.Errorf("second pass should alert only the retried protocol, got %d %+v", n, notifier.sent)
	}
}

type partialNotifier struct{ calls int }

func (p *partialNotifier) Notify(ctx context.Context, n notify.Notification) error {
	p.calls++
	return &notify.DeliveryError{Delivered: 1, Errs: []error{errors.New("whatsapp: gateway down")}}
}

func TestCheckOncePartialDeliveryStamps(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{alerted: map[string]time.Time{}, protocols: []models.Protocol{
		{ID: "old", Number: "PRT-1", Status: models.StatusOpen, CreatedAt: now.Add(-72 * time.Hour)},
	}}
	notifier := &partialNotifier{}
	c := NewChecker(src, notifier, 48*time.Hour, nil)
	c.now = func() time.Time { return now }

	if n, err := c.CheckOnce(context.Background()); err != nil || n != 1 {
		t.Fatalf("CheckOnce = %d, %v; want 1 alert", n, err)
	}
	if _, ok := src.alerted["old"]; !ok {
		t.Fatal("partially delivered alert must be stamped")
	}
	if n, _ := c.CheckOnce(context.Background()); n != 0 || notifier.calls != 1 {
		t.Errorf("alert repeated: second pass alerted %d, notifier called %d times", n, notifier.calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{alerted: map[string]time.Time{}}
	c := NewChecker(src, &fakeNotifier{}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
