package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/potentiostat-core/internal/measurement"
)

// MeasurementName is the InfluxDB measurement samples are written to.
const MeasurementName = "measurements"

// RecordMeasurement mirrors an accepted sample. It implements
// measurement.Recorder.
//
// The write only queues the point; failures are logged by the client.
func (c *Client) RecordMeasurement(m *measurement.Measurement, t *measurement.Target) {
	if !c.open.Load() {
		return
	}
	c.writer.WritePoint(MeasurementPoint(m, t))
}

// MeasurementPoint builds the point for a sample. The point time is the
// client clock reading, tagged by experiment and client.
//
// Example line protocol:
//
//	measurements,client_id=device-x,experiment_id=7 current=0.001,voltage=0.5 1000000000
func MeasurementPoint(m *measurement.Measurement, t *measurement.Target) *write.Point {
	voltage, _ := m.Voltage.Float64()
	current, _ := m.Current.Float64()

	return write.NewPoint(
		MeasurementName,
		map[string]string{
			"experiment_id": strconv.FormatInt(m.ExperimentID, 10),
			"client_id":     t.ClientIdentifier,
		},
		map[string]interface{}{
			"voltage": voltage,
			"current": current,
		},
		time.UnixMilli(m.Timestamp),
	)
}
