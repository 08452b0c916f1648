// Package consumer holds the exchange consumers of the hub.
//
// WriteDeviceState pushes the stored state of a channel to its device and
// records the outcome as property valid flags and, on failure, a queued
// connection state. StoreDeviceConnectionState applies those queued states
// and StoreChannelPropertyState applies values reported by devices.
//
// Every consumer reports its message as handled. Failures show up as
// connection states and valid/pending flags, never as redelivery.
package consumer
