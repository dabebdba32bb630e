// Package influxdb records display fleet telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and writes three
// measurements:
//
//	display_battery    device_id               level
//	display_push       result                  devices, status, duration_ms
//	screen_transition  device_id, from, to,    pushed, render_failed
//	                   input
//
// Writes are non-blocking and batched per the batch_size and
// flush_interval settings; batch failures are reported through the
// SetOnError callback. Connection and health-check errors are returned
// directly.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteBattery("D-1042", 37, time.Now())
package influxdb
