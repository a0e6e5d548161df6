package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"monolithgo/pkg/config"
	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/store"
)

// Controller is the control surface of a tracking session. *dtrack.Session satisfies it.
type Controller interface {
	StartMeasurement(channel uint) error
	StopMeasurement() error
	SetParameter(parameter string) error
	GetParameter(parameter string) (string, error)
	State() dtrack.State
	RemoteSystem() dtrack.RemoteSystem
	DataPort() int
	ControlValid() bool
	LastServerError() *dtrack.ServerError
}

// MessageLog lists recently polled controller messages.
type MessageLog interface {
	Recent() []store.MessageRecord
}

// ControlHandler handles measurement control and controller parameters.
type ControlHandler struct {
	ctl      Controller
	cfgProv  config.Provider
	messages MessageLog
}

// NewControlHandler creates a ControlHandler. messages may be nil.
func NewControlHandler(ctl Controller, cfg config.Provider, messages MessageLog) *ControlHandler {
	return &ControlHandler{ctl: ctl, cfgProv: cfg, messages: messages}
}

// StatusResponse describes the session.
type StatusResponse struct {
	State        string              `json:"state"`
	RemoteSystem string              `json:"remote_system"`
	DataPort     int                 `json:"data_port"`
	Control      bool                `json:"control"`
	ServerError  *dtrack.ServerError `json:"server_error,omitempty"`
}

func (h *ControlHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		State:        string(h.ctl.State()),
		RemoteSystem: h.ctl.RemoteSystem().String(),
		DataPort:     h.ctl.DataPort(),
		Control:      h.ctl.ControlValid(),
		ServerError:  h.ctl.LastServerError(),
	})
}

func (h *ControlHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	channel := h.cfgProv.Channel(r.Context())
	if err := h.ctl.StartMeasurement(channel); err != nil {
		writeControlError(w, "start measurement", err)
		return
	}
	slog.Info("Measurement started via API", "channel", channel)
	h.HandleStatus(w, r)
}

func (h *ControlHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.StopMeasurement(); err != nil {
		writeControlError(w, "stop measurement", err)
		return
	}
	slog.Info("Measurement stopped via API")
	h.HandleStatus(w, r)
}

// ParamRequest carries "<category> <name> [<value>]".
type ParamRequest struct {
	Parameter string `json:"parameter"`
}

// ParamResponse echoes the parameter and its value.
type ParamResponse struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// HandleGetParam reads ?parameter=<category> <name>.
func (h *ControlHandler) HandleGetParam(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSpace(r.URL.Query().Get("parameter"))
	if p == "" {
		writeError(w, http.StatusBadRequest, "missing parameter")
		return
	}
	v, err := h.ctl.GetParameter(p)
	if err != nil {
		writeControlError(w, "get parameter", err)
		return
	}
	writeJSON(w, http.StatusOK, ParamResponse{Parameter: p, Value: v})
}

// HandleSetParam sets "<category> <name> <value>".
func (h *ControlHandler) HandleSetParam(w http.ResponseWriter, r *http.Request) {
	var req ParamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p := strings.TrimSpace(req.Parameter)
	if p == "" {
		writeError(w, http.StatusBadRequest, "missing parameter")
		return
	}
	if err := h.ctl.SetParameter(p); err != nil {
		writeControlError(w, "set parameter", err)
		return
	}
	writeJSON(w, http.StatusOK, ParamResponse{Parameter: p})
}

func (h *ControlHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	msgs := []store.MessageRecord{}
	if h.messages != nil {
		msgs = h.messages.Recent()
	}
	writeJSON(w, http.StatusOK, msgs)
}

// controlStatus maps session errors to HTTP statuses.
func controlStatus(err error) int {
	var se *dtrack.ServerError
	switch {
	case errors.Is(err, dtrack.ErrCommandTooLong):
		return http.StatusBadRequest
	case errors.Is(err, dtrack.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, dtrack.ErrControlUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, dtrack.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &se), errors.Is(err, dtrack.ErrProtocol), errors.Is(err, dtrack.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeControlError(w http.ResponseWriter, op string, err error) {
	slog.Warn("Control request failed", "op", op, "error", err)
	writeError(w, controlStatus(err), err.Error())
}
