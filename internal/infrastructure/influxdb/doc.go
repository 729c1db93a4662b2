// Package influxdb records Winston value events in InfluxDB.
//
// Every value read or written through the RPC router becomes a point in the
// channel_values measurement, tagged by module, channel, value index and
// operation. Group trigger executions go to trigger_executions. Numeric and
// boolean values also carry a float "numeric" field so they can be graphed.
//
// # Usage
//
//	client, err := influxdb.Dial(ctx, cfg.InfluxDB, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteChannelValue(influxdb.ChannelValue{
//	    Module: "wemo", Channel: "lamp", Index: 0, Name: "state",
//	    Op: influxdb.OpWrite, Raw: "true",
//	})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. A batch the server rejects is logged and dropped.
package influxdb
