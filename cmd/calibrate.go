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

	"github.com/roadmetrics/surveyd/iri"
	"github.com/roadmetrics/surveyd/state"
	"github.com/roadmetrics/surveyd/stream"
	"github.com/roadmetrics/surveyd/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optCalReferenceIri float64
var optCalAvgSpeedKmh float64
var optCalDryRun bool

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate [sensor-log.ndjson]",
	Short: "Solve and store the roughness calibration factor",
	Long: `

Feeds a sensor log recorded on a road with a known IRI through the roughness
band-pass and solves factor = reference-iri / rms. The factor is persisted
to the state db for later sessions and replays.

The log should cover a single, uniform stretch driven at a steady speed;
pass that speed with --avg-speed-kmh.

Examples:

  surveyd calibrate --reference-iri 2.1 --avg-speed-kmh 60 smooth-highway.ndjson
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		if optCalReferenceIri <= 0 || optCalAvgSpeedKmh <= 0 {
			log.Fatalln("both --reference-iri and --avg-speed-kmh are required")
		}

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				log.Fatalln(err)
			}
			defer f.Close()
			in = f
		}

		est := iri.NewEstimator(nil, nil)
		if !est.StartListening() {
			log.Fatalln("estimator refused to listen")
		}
		defer est.StopListening()

		ctx := context.Background()
		motionOnly := stream.Filter(ctx, func(event types.SensorEvent) bool {
			return event.Gravity != nil || event.Accel != nil
		}, types.ScanSensorEvents(ctx, in))
		for _, event := range stream.Collect(ctx, motionOnly) {
			if event.Gravity != nil {
				est.IngestGravity(*event.Gravity)
			} else {
				est.IngestAcceleration(*event.Accel)
			}
		}

		rms, ok := est.Rms(optCalAvgSpeedKmh)
		if !ok {
			log.Fatalln("not enough usable motion samples in the log")
		}
		factor := optCalReferenceIri / rms
		slog.Info("Solved calibration", "rms", rms, "factor", factor,
			"samples", est.RawLen())

		if optCalDryRun {
			return
		}
		store, err := state.Open(viper.GetString("datadir"), false)
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()
		if err := store.StoreCalibration(factor); err != nil {
			log.Fatalln(err)
		}
		slog.Info("Stored calibration factor")
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	pFlags := calibrateCmd.PersistentFlags()
	pFlags.Float64Var(&optCalReferenceIri, "reference-iri", 0, "Known IRI of the calibration stretch (mm/m)")
	pFlags.Float64Var(&optCalAvgSpeedKmh, "avg-speed-kmh", 0, "Steady speed the stretch was driven at")
	pFlags.BoolVar(&optCalDryRun, "dry-run", false, "Solve but do not persist")
}
