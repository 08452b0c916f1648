package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hub/internal/device"
)

// pathID returns the {id} path parameter, writing a 400 when it is unusable.
func pathID(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid "+what+" ID")
		return "", false
	}
	return id, true
}

// handleListDevices returns all devices, optionally filtered by category.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	if cat := r.URL.Query().Get("category"); cat != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if string(d.Category) == cat {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "device")
	if !ok {
		return
	}
	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleListChannels returns the channels of a device.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "device")
	if !ok {
		return
	}
	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	channels, err := s.registry.ListChannels(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list channels")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels, "count": len(channels)})
}

// handleGetChannel returns a single channel by ID.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "channel")
	if !ok {
		return
	}
	ch, err := s.registry.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrChannelNotFound) {
			writeNotFound(w, "channel not found")
			return
		}
		writeInternalError(w, "failed to get channel")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleGetConnector returns a single connector by ID.
func (s *Server) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "connector")
	if !ok {
		return
	}
	c, err := s.registry.GetConnector(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to get connector")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleGetDeviceConnection returns the connection state of a device.
func (s *Server) handleGetDeviceConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "device")
	if !ok {
		return
	}
	if s.connection == nil {
		writeUnavailable(w, "connection state")
		return
	}
	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	st, err := s.connection.GetDeviceState(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to read connection state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "state": st})
}

// handleGetConnectorConnection returns the connection state of a connector.
func (s *Server) handleGetConnectorConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "connector")
	if !ok {
		return
	}
	if s.connection == nil {
		writeUnavailable(w, "connection state")
		return
	}
	if _, err := s.registry.GetConnector(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to get connector")
		return
	}
	st, err := s.connection.GetConnectorState(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to read connection state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connector_id": id, "state": st})
}
