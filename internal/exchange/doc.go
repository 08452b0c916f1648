// Package exchange carries messages between the hub's producers and
// consumers.
//
// A message is an Envelope addressed by a routing key. Queues accept
// envelopes through Append and hand them to the Dispatcher, which calls
// every Consumer registered for the key. Inbound envelopes are validated
// against the JSON schemas embedded in this package before they reach a
// consumer.
//
// Two queues are provided: MemoryQueue delivers in-process from a single
// goroutine, MQTTQueue publishes to graylogic/hub/exchange/{routing_key}
// and dispatches what it receives from the broker.
package exchange
