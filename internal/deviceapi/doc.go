// Package deviceapi sends state commands to devices.
//
// Commands travel to the device bridge as JSON on
// graylogic/command/{protocol}/{device_id}; the bridge answers on
// graylogic/ack/{protocol}/{device_id}. An ack with status failed or
// timeout is returned as a *CallError carrying the request and response.
// Anything else that goes wrong (no ack in time, broker errors) is a plain
// error.
package deviceapi
