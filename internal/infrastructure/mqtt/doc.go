// Package mqtt provides MQTT client connectivity for mC Connect Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The broker is an optional side channel. Core mirrors every display's
// screen to a retained state topic so dashboards and kitchen screens can
// follow the fleet, and may subscribe to an ingress topic carrying the
// same device events the fleet platform posts to the webhook.
//
//	Fleet platform → webhook ┐
//	                         ├→ Dispatcher → Controllers → mcconnect/display/{id}/state
//	MQTT ingress topic ──────┘
//
// # Security Considerations
//
//   - TLS should be enabled whenever the broker is not on localhost
//   - Credentials are validated against the broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDisplayStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
