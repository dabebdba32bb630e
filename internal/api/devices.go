package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/tables"
)

type createDeviceRequest struct {
	DeviceID string `json:"device_id"`
	TableID  string `json:"table_id"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snaps := s.registry.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": snaps,
		"count":   len(snaps),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// handleCreateDevice binds a display to a table and starts its controller
// on the home screen.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	if s.provisioner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "device provisioning is not configured")
		return
	}

	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	c, err := s.provisioner.Provision(r.Context(), device.Assignment{DeviceID: req.DeviceID, TableID: req.TableID})
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}

	s.logger.Info("device provisioned", "device_id", c.ID(), "table_id", req.TableID)
	writeJSON(w, http.StatusCreated, c.Snapshot())
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if s.provisioner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "device provisioning is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.provisioner.Deprovision(r.Context(), id); err != nil {
		s.writeDeviceError(w, err)
		return
	}

	s.logger.Info("device deprovisioned", "device_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetActive mirrors what the fleet platform reports through
// image-updated, for operators marking a display offline by hand.
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeBadRequest(w, "body must be {\"active\": true|false}")
		return
	}

	c.SetActive(*req.Active)
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// handleRefreshDevice re-renders the current screen with a fresh balance.
func (s *Server) handleRefreshDevice(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	t, err := c.Refresh(r.Context())
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleDeviceFrame returns what the display would currently show.
func (s *Server) handleDeviceFrame(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	frame, err := c.Preview(r.Context())
	if err != nil {
		s.logger.Error("preview render failed", "device_id", c.ID(), "error", err)
		writeInternalError(w, "render failed")
		return
	}
	data, err := frame.PNG()
	if err != nil {
		writeInternalError(w, "encoding frame failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client may have gone away
}

func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*device.Controller, bool) {
	id := chi.URLParam(r, "id")
	c, err := s.registry.Get(id)
	if err != nil {
		writeNotFound(w, "device not found: "+id)
		return nil, false
	}
	return c, true
}

func (s *Server) writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, tables.ErrAssignmentNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, device.ErrDeviceExists), errors.Is(err, tables.ErrAssignmentExists):
		writeConflict(w, err.Error())
	case errors.Is(err, device.ErrInvalidDevice), errors.Is(err, tables.ErrInvalidAssignment):
		writeBadRequest(w, err.Error())
	case errors.Is(err, device.ErrStopped):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("device operation failed", "error", err)
		writeInternalError(w, "device operation failed")
	}
}
