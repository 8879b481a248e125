package notify

import (
	"context"
	"testing"

	"CatalogSync/internal/domain"
)

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b, NewLog(nil)}
	m.Emit(context.Background(), domain.Notification{Type: domain.NotifyStockLow})
	m.Emit(context.Background(), domain.Notification{Type: domain.NotifyStockOut})

	if len(a.Notifications()) != 2 || len(b.Notifications()) != 2 {
		t.Fatalf("expected both recorders to receive 2 alerts")
	}
	if got := a.Notifications(domain.NotifyStockOut); len(got) != 1 {
		t.Fatalf("expected filtered alerts, got %+v", got)
	}
}

func TestPublisherSwallowsErrors(t *testing.T) {
	t.Parallel()

	client, err := NewRedisClient(context.Background(), RedisConfig{URL: "not a url"})
	if err == nil || client != nil {
		t.Fatalf("expected parse error")
	}
}
