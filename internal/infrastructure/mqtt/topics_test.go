package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "BridgeState",
			builder:  func() string { return Topics{}.BridgeState("panel", "dev-01") },
			expected: "graylogic/state/panel/dev-01",
		},
		{
			name:     "BridgeCommand",
			builder:  func() string { return Topics{}.BridgeCommand("panel", "dev-01") },
			expected: "graylogic/command/panel/dev-01",
		},
		{
			name:     "BridgeAck",
			builder:  func() string { return Topics{}.BridgeAck("tv", "dev-02") },
			expected: "graylogic/ack/tv/dev-02",
		},
		{
			name:     "Exchange",
			builder:  func() string { return Topics{}.Exchange("store.device.connection_state") },
			expected: "graylogic/hub/exchange/store.device.connection_state",
		},
		{
			name:     "PropertyState",
			builder:  func() string { return Topics{}.PropertyState("channel", "p-1") },
			expected: "graylogic/hub/property/channel/p-1/state",
		},
		{
			name:     "ConnectionState",
			builder:  func() string { return Topics{}.ConnectionState("device", "dev-01") },
			expected: "graylogic/hub/connection/device/dev-01",
		},
		{
			name:     "SystemStatus",
			builder:  func() string { return Topics{}.SystemStatus() },
			expected: "graylogic/system/status",
		},
		{
			name:     "AllBridgeStates",
			builder:  func() string { return Topics{}.AllBridgeStates() },
			expected: "graylogic/state/+/+",
		},
		{
			name:     "AllBridgeAcks",
			builder:  func() string { return Topics{}.AllBridgeAcks("panel") },
			expected: "graylogic/ack/panel/+",
		},
		{
			name:     "AllExchange",
			builder:  func() string { return Topics{}.AllExchange() },
			expected: "graylogic/hub/exchange/+",
		},
		{
			name:     "AllTopics",
			builder:  func() string { return Topics{}.AllTopics() },
			expected: "graylogic/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Edge Case Tests
// =============================================================================
