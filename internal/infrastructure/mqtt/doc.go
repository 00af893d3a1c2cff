// Package mqtt publishes coverseer's supervision activity onto an MQTT
// broker and accepts operator commands back.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained presence on {prefix}/status, with a Last Will and
//     Testament so subscribers see "offline" even when coverseer
//     itself dies unexpectedly
//   - Lifecycle event publishing ({prefix}/event/+) and optional raw
//     output mirroring ({prefix}/output/+)
//   - A control topic ({prefix}/control) for operator restart requests
//
// MQTT is optional: when disabled in configuration nothing here is
// wired up and supervision proceeds untouched. Publish failures are
// absorbed by the event fan-out, so a broker outage never stalls the
// supervision loop.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	err = client.Subscribe(topics.Control(), 1,
//	    func(topic string, payload []byte) error {
//	        // handle operator command
//	        return nil
//	    })
package mqtt
