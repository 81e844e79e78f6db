package buffer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nixlim/ids-top/internal/alerts"
)

func makeAlert(id string) alerts.Alert {
	return alerts.Alert{
		ID:         id,
		Timestamp:  time.Now(),
		Severity:   alerts.SeverityMedium,
		ThreatType: "PortScan",
		SourceIP:   "10.0.0.1",
	}
}

func ids(list []alerts.Alert) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestAlertBuffer_NewestFirst(t *testing.T) {
	buf := New(5)

	buf.Append(makeAlert("a1"))
	buf.Append(makeAlert("a2"))
	buf.Append(makeAlert("a3"))

	got := ids(buf.Snapshot())
	want := []string{"a3", "a2", "a1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order: want %v, got %v", want, got)
	}
}

func TestAlertBuffer_Eviction(t *testing.T) {
	buf := New(3)

	for i := 1; i <= 4; i++ {
		buf.Append(makeAlert(fmt.Sprintf("a%d", i)))
	}

	if buf.Len() != 3 {
		t.Fatalf("expected len=3 after eviction, got %d", buf.Len())
	}
	want := []string{"a4", "a3", "a2"}
	if got := ids(buf.Snapshot()); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("after one eviction: want %v, got %v", want, got)
	}

	buf.Append(makeAlert("a5"))
	buf.Append(makeAlert("a6"))
	want = []string{"a6", "a5", "a4"}
	if got := ids(buf.Snapshot()); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("after three evictions: want %v, got %v", want, got)
	}
}

func TestAlertBuffer_BoundedAtDefaultCapacity(t *testing.T) {
	buf := New(DefaultCapacity)

	for i := 0; i < 250; i++ {
		buf.Append(makeAlert(fmt.Sprintf("a%d", i)))
		if buf.Len() > DefaultCapacity {
			t.Fatalf("len %d exceeds capacity after %d appends", buf.Len(), i+1)
		}
	}

	snap := buf.Snapshot()
	if len(snap) != DefaultCapacity {
		t.Fatalf("expected %d alerts, got %d", DefaultCapacity, len(snap))
	}
	for i, a := range snap {
		want := fmt.Sprintf("a%d", 249-i)
		if a.ID != want {
			t.Fatalf("position %d: want %s, got %s", i, want, a.ID)
		}
	}
}

func TestAlertBuffer_NoDeduplication(t *testing.T) {
	buf := New(10)

	buf.Append(makeAlert("same"))
	buf.Append(makeAlert("same"))

	if buf.Len() != 2 {
		t.Errorf("repeated ids must not collapse: want len=2, got %d", buf.Len())
	}
}

func TestAlertBuffer_Clear(t *testing.T) {
	buf := New(3)
	buf.Append(makeAlert("a1"))
	buf.Append(makeAlert("a2"))

	buf.Clear()

	if buf.Len() != 0 {
		t.Errorf("expected empty buffer after Clear, got len=%d", buf.Len())
	}
	if snap := buf.Snapshot(); snap != nil {
		t.Errorf("expected nil snapshot, got %v", snap)
	}
	if _, ok := buf.Latest(); ok {
		t.Error("Latest should report false on an empty buffer")
	}

	buf.Append(makeAlert("a3"))
	if got := ids(buf.Snapshot()); fmt.Sprint(got) != "[a3]" {
		t.Errorf("append after clear: got %v", got)
	}
}

func TestAlertBuffer_SnapshotIsCopy(t *testing.T) {
	buf := New(3)
	buf.Append(makeAlert("a1"))

	snap := buf.Snapshot()
	snap[0].ID = "mutated"

	latest, _ := buf.Latest()
	if latest.ID != "a1" {
		t.Errorf("mutating a snapshot changed the buffer: got %q", latest.ID)
	}
}

func TestAlertBuffer_CapacityFloor(t *testing.T) {
	buf := New(0)
	if buf.Cap() != 1 {
		t.Fatalf("expected capacity floor of 1, got %d", buf.Cap())
	}
	buf.Append(makeAlert("first"))
	buf.Append(makeAlert("second"))
	if latest, _ := buf.Latest(); latest.ID != "second" {
		t.Errorf("expected second, got %q", latest.ID)
	}
}

func TestAlertBuffer_ConcurrentAccess(t *testing.T) {
	buf := New(50)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				buf.Append(makeAlert(fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if n := len(buf.Snapshot()); n > 50 {
					t.Errorf("snapshot larger than capacity: %d", n)
					return
				}
			}
		}()
	}
	wg.Wait()

	if buf.Len() != 50 {
		t.Errorf("expected full buffer, got len=%d", buf.Len())
	}
}
