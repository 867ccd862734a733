// Package influxdb mirrors measurement samples into InfluxDB v2.
//
// The mirror is optional (influxdb.enabled in config.yaml). When enabled,
// every sample accepted by the ingestion service is written as one point:
//
//	measurement: measurements
//	tags:        experiment_id, client_id
//	fields:      voltage, current (float)
//	time:        the client timestamp (milliseconds)
//
// Writes are batched and non-blocking. A slow or unavailable InfluxDB
// never fails ingestion; write errors are logged.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ingest := measurement.NewService(repo, engine, db, client)
package influxdb
