// Package mqtt is the master's broker session.
//
// MQTT is a side channel. The HTTP path RPC stays authoritative; the broker
// gets a retained copy of every value event, each trigger execution, and
// may carry RPC paths in on winston/command. The master's presence is kept
// on the retained winston/system/status topic: "online" on every session,
// "offline" on a clean Close, and the will's "offline" if the session dies.
//
//	client, err := mqtt.Dial(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Command(), 1, listener.HandleMessage)
package mqtt
