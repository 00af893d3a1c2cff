// Package influxdb records supervision metrics in InfluxDB v2.
//
// Built on the official influxdb-client-go v2 library, it stores three
// kinds of time series: oracle verdict outcomes and latencies, restart
// decisions with their backoff delays, and completed run lifetimes
// with exit codes. All of it is tagged with the session ID so several
// coverseer instances can share a bucket.
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "coverseer",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteVerdictMetric("ses-4f21", "healthy", 1840)
//
// Writes are batched and non-blocking (batch_size and flush_interval
// in config.yaml); batch errors surface through the SetOnError
// callback rather than the write call. Supervision never waits on the
// metrics backend; a down InfluxDB costs nothing but dropped points.
// All methods are safe for concurrent use.
package influxdb
