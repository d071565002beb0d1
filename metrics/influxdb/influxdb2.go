package influxdb

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/stream"
	"github.com/roadmetrics/surveyd/types/roughness"
)

// ExportIriResults posts segment results to an InfluxDB Write API.
// Because it accepts a slice, use batches. The Write API will buffer and
// flush. The last error encountered is returned.
func ExportIriResults(ctx context.Context, route string, results []roughness.IriResult) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	// Errors returns a channel for reading errors which occurs during async writes.
	// Must be called before performing any writes for errors to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	// https://github.com/influxdata/influxdb-client-go?tab=readme-ov-file#reading-async-errors
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for r := range stream.Slice(ctx, results) {
		p := influxdb2.NewPointWithMeasurement("roughness").
			SetTime(r.Time()).
			AddTag("route", route).
			AddTag("rating", r.Rating.String()).
			AddField("iri", r.Iri).
			AddField("quality", r.Quality).
			AddField("distance", r.DistanceMeters).
			AddField("avg_speed_kmh", r.AvgSpeedKmh).
			AddField("spatial_samples", r.SpatialSamples)
		writeAPI.WritePoint(p)
	}

	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
