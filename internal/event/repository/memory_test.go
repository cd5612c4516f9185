package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"zero-trust-access-platform/internal/event/domain"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func appendLogin(t *testing.T, m *MemoryRepository, user string, ts time.Time, ip string) string {
	t.Helper()
	id, err := m.Append(context.Background(), &domain.LoginEvent{
		UserID: user, Timestamp: ts, IP: ip, Success: true,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return id
}

func TestMemoryRepository_AppendAssignsIDs(t *testing.T) {
	m := NewMemoryRepository()
	a := appendLogin(t, m, "alice", base, "10.0.0.1")
	b := appendLogin(t, m, "alice", base, "10.0.0.2")
	if a == "" || b == "" {
		t.Fatal("Append returned an empty ID")
	}
	if a == b {
		t.Errorf("Append assigned the same ID twice: %q", a)
	}
}

func TestMemoryRepository_QueryNewestFirst(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()
	appendLogin(t, m, "alice", base, "first")
	appendLogin(t, m, "alice", base.Add(time.Minute), "second")
	appendLogin(t, m, "alice", base.Add(2*time.Minute), "third")
	appendLogin(t, m, "bob", base.Add(time.Hour), "other-user")

	evs, err := m.Query(ctx, "alice", domain.KindLogin, TimeRange{}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("len = %d, want 3", len(evs))
	}
	want := []string{"third", "second", "first"}
	for i, w := range want {
		if got := evs[i].(*domain.LoginEvent).IP; got != w {
			t.Errorf("evs[%d].IP = %q, want %q", i, got, w)
		}
	}
}

func TestMemoryRepository_QueryEqualTimestampsStableOrder(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()
	// All at exactly the same instant; arrival order must break the tie.
	appendLogin(t, m, "alice", base, "a")
	appendLogin(t, m, "alice", base, "b")
	appendLogin(t, m, "alice", base, "c")

	evs, err := m.Query(ctx, "alice", domain.KindLogin, TimeRange{}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"c", "b", "a"}
	for i, w := range want {
		if got := evs[i].(*domain.LoginEvent).IP; got != w {
			t.Errorf("evs[%d].IP = %q, want %q (last arrival first)", i, got, w)
		}
	}
}

func TestMemoryRepository_QueryLimitAndRange(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		appendLogin(t, m, "alice", base.Add(time.Duration(i)*time.Minute), "ip")
	}

	evs, err := m.Query(ctx, "alice", domain.KindLogin, TimeRange{}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(evs) != 2 {
		t.Errorf("limit 2: len = %d, want 2", len(evs))
	}

	tr := TimeRange{From: base.Add(time.Minute), To: base.Add(3 * time.Minute)}
	evs, err = m.Query(ctx, "alice", domain.KindLogin, tr, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(evs) != 3 {
		t.Errorf("range query: len = %d, want 3", len(evs))
	}
}

func TestMemoryRepository_QueryReturnsCopies(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()
	appendLogin(t, m, "alice", base, "10.0.0.1")

	evs, err := m.Query(ctx, "alice", domain.KindLogin, TimeRange{}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	evs[0].(*domain.LoginEvent).IP = "mutated"

	again, err := m.Query(ctx, "alice", domain.KindLogin, TimeRange{}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := again[0].(*domain.LoginEvent).IP; got != "10.0.0.1" {
		t.Errorf("stored event mutated through returned copy: IP = %q", got)
	}
}

func TestMemoryRepository_LatestAndCount(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	if _, err := m.Latest(ctx, "alice", domain.KindLogin); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty store: err = %v, want ErrNotFound", err)
	}

	appendLogin(t, m, "alice", base, "old")
	appendLogin(t, m, "alice", base.Add(time.Minute), "new")

	ev, err := m.Latest(ctx, "alice", domain.KindLogin)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got := ev.(*domain.LoginEvent).IP; got != "new" {
		t.Errorf("Latest.IP = %q, want %q", got, "new")
	}

	n, err := m.Count(ctx, "alice", domain.KindLogin)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
	n, err = m.Count(ctx, "alice", domain.KindDevice)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count(device) = %d, want 0", n)
	}
}

func TestMemoryRepository_UpdateDeviceTrusted(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.Append(ctx, &domain.DeviceEvent{
			UserID: "alice", DeviceID: "laptop-1", FirstSeen: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if _, err := m.Append(ctx, &domain.DeviceEvent{
		UserID: "alice", DeviceID: "phone-1", FirstSeen: base,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := m.UpdateDeviceTrusted(ctx, "alice", "laptop-1", true); err != nil {
		t.Fatalf("UpdateDeviceTrusted: %v", err)
	}

	evs, err := m.Query(ctx, "alice", domain.KindDevice, TimeRange{}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, ev := range evs {
		d := ev.(*domain.DeviceEvent)
		if d.DeviceID == "laptop-1" && !d.Trusted {
			t.Error("laptop-1 sighting not trusted after grant")
		}
		if d.DeviceID == "phone-1" && d.Trusted {
			t.Error("phone-1 should remain untrusted")
		}
	}

	if err := m.UpdateDeviceTrusted(ctx, "alice", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateDeviceTrusted(missing): err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_ConcurrentQueryAndTrustUpdate(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := m.Append(ctx, &domain.DeviceEvent{
			UserID: "alice", DeviceID: "laptop-1", FirstSeen: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(trusted bool) {
			defer wg.Done()
			if err := m.UpdateDeviceTrusted(ctx, "alice", "laptop-1", trusted); err != nil {
				t.Errorf("UpdateDeviceTrusted: %v", err)
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			evs, err := m.Query(ctx, "alice", domain.KindDevice, TimeRange{}, 0)
			if err != nil {
				t.Errorf("Query: %v", err)
			}
			// Each returned event is a private copy; reading Trusted here
			// must be safe while grants run.
			for _, ev := range evs {
				_ = ev.(*domain.DeviceEvent).Trusted
			}
		}()
	}
	wg.Wait()
}

func TestMemoryRepository_ListRecentFileAccess(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user := "alice"
		if i == 1 {
			user = "bob"
		}
		if _, err := m.Append(ctx, &domain.FileAccessEvent{
			UserID: user, FileName: "f", Action: "read",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	feed, err := m.ListRecentFileAccess(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentFileAccess: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("len = %d, want 2", len(feed))
	}
	if !feed[0].Timestamp.After(feed[1].Timestamp) {
		t.Error("feed not ordered newest first")
	}
	if feed[0].UserID != "alice" || feed[1].UserID != "bob" {
		t.Errorf("feed users = %q, %q; want alice, bob", feed[0].UserID, feed[1].UserID)
	}
}
