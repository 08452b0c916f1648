// Package mqtt is the hub's broker client.
//
// The hub uses MQTT for three things: the exchange transport between
// producers and consumers, the command/ack/state topics shared with device
// bridges, and retained mirrors of property and connection state. Topic
// names are built with Topics; nothing else in the hub formats them.
//
// The client reconnects on its own and restores subscriptions afterwards.
// A retained StatusMessage on graylogic/system/status tracks whether the
// hub is up, with a last will covering crashes.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeStates(), 1, ingest.handleState)
package mqtt
