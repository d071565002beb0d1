/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/roadmetrics/surveyd/common"
	"github.com/roadmetrics/surveyd/metrics/influxdb"
	"github.com/roadmetrics/surveyd/scheduler"
	"github.com/roadmetrics/surveyd/state"
	"github.com/roadmetrics/surveyd/stream"
	"github.com/roadmetrics/surveyd/survey"
	"github.com/roadmetrics/surveyd/types"
	"github.com/roadmetrics/surveyd/types/roughness"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optReplayInflux bool
var optReplayRoute string
var optReplayCalibration float64

// replaySink collects what a live deployment would persist.
type replaySink struct {
	results []roughness.IriResult
}

func (rs *replaySink) OnRoughness(r roughness.IriResult) {
	rs.results = append(rs.results, r)
	slog.Info("Roughness segment",
		"iri", common.DecimalToFixed(r.Iri, 2),
		"rating", r.Rating.String(),
		"quality", common.DecimalToFixed(float64(r.Quality), 2),
		"distance", common.DecimalToFixed(r.DistanceMeters, 1),
		"kmh", common.DecimalToFixed(r.AvgSpeedKmh, 0))
}

func (rs *replaySink) OnCapture(rec survey.CaptureRecord) {
	slog.Info("Capture",
		"handle", rec.Handle,
		"at", common.DecimalToFixed(rec.Distance, 1),
		"lat", common.DecimalToFixed(rec.Position.Lat, 6),
		"lng", common.DecimalToFixed(rec.Position.Lng, 6))
}

// logCapture stands in for the camera on replays.
type logCapture struct{}

func (logCapture) RequestCapture(ctx context.Context, req scheduler.CaptureRequest) (survey.PhotoHandle, error) {
	return survey.PhotoHandle(time.Now().Format("20060102T150405.000")), nil
}

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [sensor-log.ndjson]",
	Short: "Replay a recorded sensor log through a survey session",
	Long: `

Reads an NDJSON sensor log (position fixes and motion samples, as written by
the field logger) from the given file or stdin and runs it through a full
session: position filter, odometer, trigger scheduler, roughness estimator.

The calibration factor is read from the state db; override with
--calibration. Without a factor, roughness segments are skipped - distance
and capture triggers still replay.

Examples:

  zcat route-42.ndjson.gz | surveyd replay --route route-42
  surveyd replay --influx --route route-42 route-42.ndjson
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				log.Fatalln(err)
			}
			defer f.Close()
			in = f
		}

		ctx, ctxCanceler := context.WithCancel(context.Background())
		defer ctxCanceler()
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
		go func() {
			<-interrupt
			ctxCanceler()
		}()

		sink := &replaySink{}
		session := survey.NewSession(survey.Config{
			Capture:         logCapture{},
			RoughnessSink:   sink,
			PersistenceSink: sink,
		})

		// Calibration: flag wins, then the state db.
		if optReplayCalibration > 0 {
			session.Estimator().UpdateCalibration(optReplayCalibration)
		} else if store, err := state.Open(viper.GetString("datadir"), true); err == nil {
			if factor, ok, _ := store.ReadCalibration(); ok {
				session.Estimator().UpdateCalibration(factor)
				slog.Info("Loaded calibration", "factor", factor)
			}
			store.Close()
		}

		if err := session.Start(ctx); err != nil {
			log.Fatalln(err)
		}

		meter := stream.NewScanMeter(10 * time.Second)
		toSession, toMeter := stream.Tee(ctx, types.ScanSensorEvents(ctx, in))
		wait := sync.WaitGroup{}
		wait.Add(2)
		go func() {
			defer wait.Done()
			stream.Drain(ctx, stream.Transform(ctx, func(event types.SensorEvent) types.SensorEvent {
				switch {
				case event.Position != nil:
					session.OnPosition(*event.Position)
				case event.Gravity != nil:
					session.OnGravity(*event.Gravity)
				case event.Accel != nil:
					session.OnAcceleration(*event.Accel)
				}
				return event
			}, toSession))
		}()
		go func() {
			defer wait.Done()
			stream.Drain(ctx, stream.Transform(ctx, func(event types.SensorEvent) types.SensorEvent {
				switch {
				case event.Position != nil:
					meter.MarkFix(event.Position.Time())
				case event.Accel != nil:
					meter.MarkSample(time.Unix(0, event.Accel.UnixNanos))
				}
				return event
			}, toMeter))
		}()
		wait.Wait()
		meter.Stop()
		session.Stop()

		slog.Info("Replay done",
			"distance", humanize.SIWithDigits(session.CumulativeMeters(), 1, "m"),
			"segments", len(sink.results))

		if store, err := state.Open(viper.GetString("datadir"), false); err == nil {
			if err := store.StoreCheckpoint(session.Scheduler().Checkpoint()); err != nil {
				slog.Warn("Failed to store checkpoint", "error", err)
			}
			store.Close()
		}

		if optReplayInflux && len(sink.results) > 0 {
			if err := influxdb.ExportIriResults(context.Background(), optReplayRoute, sink.results); err != nil {
				slog.Error("Influx export failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	pFlags := replayCmd.PersistentFlags()
	pFlags.BoolVar(&optReplayInflux, "influx", false, "Export segment results to InfluxDB (INFLUXDB_* env)")
	pFlags.StringVar(&optReplayRoute, "route", "", "Route tag for exported results")
	pFlags.Float64Var(&optReplayCalibration, "calibration", 0, "Calibration factor override")
}
