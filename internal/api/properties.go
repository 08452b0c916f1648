package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hub/internal/audit"
	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/store"
)

// maxQueryParamLen limits path and query parameter length.
const maxQueryParamLen = 100

// maxHistoryLimit caps the limit query parameter of history requests.
const maxHistoryLimit = 1000

// propertyResponse is a property definition with its kind.
type propertyResponse struct {
	Kind property.Kind `json:"kind"`
	*property.Definition
	ParentID string `json:"parent_id,omitempty"`
	Value    any    `json:"value,omitempty"`
}

func newPropertyResponse(p property.Property) propertyResponse {
	out := propertyResponse{Kind: p.Kind(), Definition: p.Def()}
	switch v := p.(type) {
	case *property.Mapped:
		out.ParentID = v.ParentID
	case *property.Variable:
		out.Value = v.Value
	}
	return out
}

// writeStateRequest is the body of PUT .../state.
type writeStateRequest struct {
	ExpectedValue any `json:"expected_value"`
}

// lookupProperty resolves the {id} path parameter for entity. It writes the
// error response and returns nil when the property cannot be used.
func (s *Server) lookupProperty(w http.ResponseWriter, r *http.Request, entity property.EntityKind) property.Property {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid property ID")
		return nil
	}
	p, err := s.managers[entity].Config().Find(r.Context(), id)
	if errors.Is(err, property.ErrPropertyNotFound) {
		writeNotFound(w, "property not found")
		return nil
	}
	if err != nil {
		writeInternalError(w, "failed to load property")
		return nil
	}
	if p.Def().Entity != entity {
		writeNotFound(w, "property not found")
		return nil
	}
	return p
}

func (s *Server) handleGetProperty(entity property.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.lookupProperty(w, r, entity)
		if p == nil {
			return
		}
		writeJSON(w, http.StatusOK, newPropertyResponse(p))
	}
}

func (s *Server) handleGetPropertyState(entity property.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.lookupProperty(w, r, entity)
		if p == nil {
			return
		}
		st, err := s.managers[entity].Read(r.Context(), p)
		if err != nil {
			s.writeStateError(w, err, "failed to read property state")
			return
		}
		if st == nil {
			writeNotFound(w, "no state recorded")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handlePutPropertyState(entity property.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.lookupProperty(w, r, entity)
		if p == nil {
			return
		}
		var req writeStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}

		ctx := r.Context()
		m := s.managers[entity]
		saved, err := m.Write(ctx, p, property.Expected(req.ExpectedValue))
		if err != nil {
			s.recordWrite(r, p, audit.ActionStateRejected, map[string]any{"expected": req.ExpectedValue, "error": err.Error()})
			s.writeStateError(w, err, "failed to write property state")
			return
		}
		if !saved {
			writeUnavailable(w, "state storage")
			return
		}

		queued := false
		if entity == property.EntityChannel && req.ExpectedValue != nil {
			queued, err = s.enqueueChannelWrite(ctx, p.Def().OwnerID)
			if err != nil {
				s.logger.Error("enqueueing channel write", "property_id", p.Def().ID, "channel_id", p.Def().OwnerID, "error", err)
			}
		}
		s.recordWrite(r, p, audit.ActionStateWrite, map[string]any{"expected": req.ExpectedValue, "queued": queued})

		st, err := m.Read(ctx, p)
		if err != nil {
			s.writeStateError(w, err, "failed to read property state")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": st, "queued": queued})
	}
}

// handleDeleteProperty removes a property definition together with its
// state record.
func (s *Server) handleDeleteProperty(entity property.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.lookupProperty(w, r, entity)
		if p == nil {
			return
		}
		if s.definitions == nil {
			writeUnavailable(w, "property configuration")
			return
		}

		ctx := r.Context()
		removed, err := s.managers[entity].Delete(ctx, p)
		if err != nil {
			s.writeStateError(w, err, "failed to delete property state")
			return
		}
		err = s.definitions.Delete(ctx, p.Def().ID)
		if errors.Is(err, property.ErrPropertyNotFound) {
			writeNotFound(w, "property not found")
			return
		}
		if err != nil {
			s.logger.Error("deleting property", "property_id", p.Def().ID, "error", err)
			writeInternalError(w, "failed to delete property")
			return
		}

		s.recordWrite(r, p, audit.ActionPropertyDelete, map[string]any{"state_removed": removed})
		w.WriteHeader(http.StatusNoContent)
	}
}

// enqueueChannelWrite queues a write message for the device owning
// channelID. Devices outside the sub-device and third-party categories are
// not pushed.
func (s *Server) enqueueChannelWrite(ctx context.Context, channelID string) (bool, error) {
	if s.queue == nil {
		return false, nil
	}
	ch, err := s.registry.GetChannel(ctx, channelID)
	if err != nil {
		return false, err
	}
	dev, err := s.registry.GetDevice(ctx, ch.DeviceID)
	if err != nil {
		return false, err
	}

	var key exchange.RoutingKey
	switch dev.Category {
	case device.CategorySubDevice:
		key = exchange.WriteSubDeviceState
	case device.CategoryThirdParty:
		key = exchange.WriteThirdPartyDeviceState
	default:
		return false, nil
	}

	env, err := exchange.NewEnvelope(s.source, key, exchange.WriteDeviceState{
		ConnectorID: dev.ConnectorID,
		DeviceID:    dev.ID,
		ChannelID:   ch.ID,
	})
	if err != nil {
		return false, err
	}
	if err := s.queue.Append(ctx, env); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Server) handleGetPropertyHistory(entity property.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.lookupProperty(w, r, entity)
		if p == nil {
			return
		}
		if s.history == nil {
			writeUnavailable(w, "state history")
			return
		}

		q := store.HistoryQuery{PropertyID: p.Def().ID}
		if m, ok := p.(*property.Mapped); ok {
			q.PropertyID = m.ParentID
		}
		var err error
		if q.Limit, err = parseHistoryLimit(r.URL.Query().Get("limit")); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		if q.Since, err = parseSinceParam(r.URL.Query().Get("since")); err != nil {
			writeBadRequest(w, "invalid since timestamp")
			return
		}

		entries, err := s.history.List(r.Context(), q)
		if err != nil {
			writeInternalError(w, "failed to load property history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"property_id": p.Def().ID,
			"history":     entries,
			"count":       len(entries),
		})
	}
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return store.DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}

func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
