package types

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDecodeSensorLinePosition(t *testing.T) {
	ev, err := DecodeSensorLine([]byte(`{"lat":45.57,"lng":-111.18,"accuracy":4.2,"speed":8.5,"time_unix_ns":1700000000000000000}`))
	if err != nil {
		t.Fatal(err)
	}
	p := ev.Position
	if p == nil {
		t.Fatal("expected a position event")
	}
	if p.Lat != 45.57 || p.Lng != -111.18 {
		t.Errorf("got %v,%v", p.Lat, p.Lng)
	}
	if p.Accuracy != 4.2 || p.Speed != 8.5 {
		t.Errorf("accuracy=%v speed=%v", p.Accuracy, p.Speed)
	}
	if p.UnixNanos != 1700000000000000000 {
		t.Errorf("time = %d", p.UnixNanos)
	}
}

func TestDecodeSensorLineLongFieldNames(t *testing.T) {
	ev, err := DecodeSensorLine([]byte(`{"latitude":45.57,"longitude":-111.18,"time":1700000000.5}`))
	if err != nil {
		t.Fatal(err)
	}
	p := ev.Position
	if p == nil {
		t.Fatal("expected a position event")
	}
	if p.Lat != 45.57 || p.Lng != -111.18 {
		t.Errorf("got %v,%v", p.Lat, p.Lng)
	}
	// No speed field: unknown, not zero.
	if p.HasSpeed() {
		t.Errorf("speed = %v, want unknown", p.Speed)
	}
	if p.UnixNanos != 1700000000500000000 {
		t.Errorf("time = %d, want float seconds scaled to nanos", p.UnixNanos)
	}
}

func TestDecodeSensorLineAcceleration(t *testing.T) {
	ev, err := DecodeSensorLine([]byte(`{"x":0.1,"y":-0.2,"z":9.9,"t":42}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Accel == nil {
		t.Fatal("expected an acceleration event")
	}
	if ev.Accel.X != 0.1 || ev.Accel.Y != -0.2 || ev.Accel.Z != 9.9 || ev.Accel.UnixNanos != 42 {
		t.Errorf("got %+v", *ev.Accel)
	}
}

func TestDecodeSensorLineGravity(t *testing.T) {
	for _, line := range []string{
		`{"type":"gravity","x":0.1,"y":0.2,"z":9.8,"t":7}`,
		`{"gx":0.1,"gy":0.2,"gz":9.8,"t":7}`,
	} {
		ev, err := DecodeSensorLine([]byte(line))
		if err != nil {
			t.Fatal(err)
		}
		g := ev.Gravity
		if g == nil {
			t.Fatalf("expected a gravity event for %s", line)
		}
		if g.X != 0.1 || g.Y != 0.2 || g.Z != 9.8 || g.UnixNanos != 7 {
			t.Errorf("got %+v for %s", *g, line)
		}
	}
}

func TestDecodeSensorLineGarbage(t *testing.T) {
	for _, line := range []string{`{}`, `{"foo":1}`, `not json at all`} {
		if _, err := DecodeSensorLine([]byte(line)); err == nil {
			t.Errorf("decoded %q", line)
		}
	}
}

func TestScanSensorEventsSkipsBadLines(t *testing.T) {
	log := strings.Join([]string{
		`{"lat":1,"lng":2,"accuracy":5,"t":1}`,
		``,
		`garbage`,
		`{"x":0,"y":0,"z":9.8,"t":2}`,
	}, "\n")

	var positions, accels int
	for ev := range ScanSensorEvents(context.Background(), strings.NewReader(log)) {
		switch {
		case ev.Position != nil:
			positions++
		case ev.Accel != nil:
			accels++
		}
	}
	if positions != 1 || accels != 1 {
		t.Errorf("positions=%d accels=%d, want 1 and 1", positions, accels)
	}
}

func TestScanSensorEventsHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := ScanSensorEvents(ctx, strings.NewReader(`{"lat":1,"lng":2}`+"\n"+`{"lat":3,"lng":4}`))
	// The pipeline must wind down and close; an unread stage racing the
	// cancel may still hand over an element or two.
	done := make(chan int)
	go func() {
		n := 0
		for range events {
			n++
		}
		done <- n
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event channel never closed after cancel")
	}
}
