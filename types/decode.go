package types

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roadmetrics/surveyd/stream"
	"github.com/roadmetrics/surveyd/types/gps"
	"github.com/roadmetrics/surveyd/types/motion"
	"github.com/tidwall/gjson"
)

var ErrDecodeSensorLine = errors.New("could not decode line as position, acceleration, or gravity event")

// SensorEvent is one decoded line of a recorded sensor log. Exactly one of
// the fields is set.
type SensorEvent struct {
	Position *gps.RawPosition
	Accel    *motion.AccelerationSample
	Gravity  *motion.GravitySample
}

// DecodeSensorLine is a serial collection of handy-bandy attempts to turn
// one NDJSON log line into a sensor event. Field names vary across logger
// versions (lat vs latitude, t vs time_unix_ns), so it sniffs with gjson
// rather than committing to a schema.
func DecodeSensorLine(data []byte) (SensorEvent, error) {
	// Position lines carry a latitude under one of two names.
	if lat := gjson.GetBytes(data, "lat"); lat.Exists() || gjson.GetBytes(data, "latitude").Exists() {
		if !lat.Exists() {
			lat = gjson.GetBytes(data, "latitude")
		}
		lng := gjson.GetBytes(data, "lng")
		if !lng.Exists() {
			lng = gjson.GetBytes(data, "longitude")
		}
		p := &gps.RawPosition{
			Lat:       lat.Float(),
			Lng:       lng.Float(),
			Accuracy:  gjson.GetBytes(data, "accuracy").Float(),
			Speed:     gps.SpeedUnknown,
			UnixNanos: sniffTime(data),
		}
		if speed := gjson.GetBytes(data, "speed"); speed.Exists() {
			p.Speed = speed.Float()
		}
		return SensorEvent{Position: p}, nil
	}

	// Acceleration and gravity lines share an x/y/z shape; gravity lines are
	// tagged, either with a type field or a g_ prefix convention.
	if x := gjson.GetBytes(data, "x"); x.Exists() {
		y := gjson.GetBytes(data, "y").Float()
		z := gjson.GetBytes(data, "z").Float()
		t := sniffTime(data)
		if typ := gjson.GetBytes(data, "type"); typ.String() == "gravity" {
			return SensorEvent{Gravity: &motion.GravitySample{X: x.Float(), Y: y, Z: z, UnixNanos: t}}, nil
		}
		return SensorEvent{Accel: &motion.AccelerationSample{X: x.Float(), Y: y, Z: z, UnixNanos: t}}, nil
	}
	if gx := gjson.GetBytes(data, "gx"); gx.Exists() {
		return SensorEvent{Gravity: &motion.GravitySample{
			X:         gx.Float(),
			Y:         gjson.GetBytes(data, "gy").Float(),
			Z:         gjson.GetBytes(data, "gz").Float(),
			UnixNanos: sniffTime(data),
		}}, nil
	}

	return SensorEvent{}, ErrDecodeSensorLine
}

func sniffTime(data []byte) int64 {
	if t := gjson.GetBytes(data, "time_unix_ns"); t.Exists() {
		return t.Int()
	}
	if t := gjson.GetBytes(data, "t"); t.Exists() {
		return t.Int()
	}
	// Some loggers wrote float seconds.
	if t := gjson.GetBytes(data, "time"); t.Exists() {
		return int64(t.Float() * 1e9)
	}
	return 0
}

// ScanSensorEvents decodes an NDJSON sensor log line by line. Undecodable
// lines are logged and skipped; a recorded log is replayable even when some
// logger version wrote lines we no longer understand.
func ScanSensorEvents(ctx context.Context, r io.Reader) <-chan SensorEvent {
	decoded := stream.Transform(ctx, func(line []byte) SensorEvent {
		event, err := DecodeSensorLine(line)
		if err != nil {
			slog.Debug("Skipping undecodable sensor line", "error", err)
			return SensorEvent{}
		}
		return event
	}, scanLines(ctx, r))
	return stream.Filter(ctx, func(event SensorEvent) bool {
		return event.Position != nil || event.Accel != nil || event.Gravity != nil
	}, decoded)
}

// scanLines streams the non-empty lines of r. Each line is copied; the
// scanner's buffer is reused under the consumer.
func scanLines(ctx context.Context, r io.Reader) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case <-ctx.Done():
				return
			case out <- line:
			}
		}
	}()
	return out
}
