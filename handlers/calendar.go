package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"airingcal/services/calendar"

	"github.com/gorilla/mux"
)

// maxWait bounds ?wait=1 requests that block until a round settles.
const maxWait = 30 * time.Second

// CalendarHandler serves the calendar session API.
type CalendarHandler struct {
	Service         *calendar.Service
	DefaultLocation *time.Location
	Clock           func() time.Time
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(service *calendar.Service, defaultLocation *time.Location) *CalendarHandler {
	if defaultLocation == nil {
		defaultLocation = time.Local
	}
	return &CalendarHandler{
		Service:         service,
		DefaultLocation: defaultLocation,
		Clock:           time.Now,
	}
}

// Register mounts the calendar routes on r.
func (h *CalendarHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/calendar").Subrouter()
	api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.OpenSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sessionID}", h.CloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sessionID}/month", h.Navigate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}/reload", h.Reload).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}/selection", h.Select).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{sessionID}/calendar.ics", h.ExportICS).Methods(http.MethodGet)
	api.PathPrefix("/").HandlerFunc(h.Options).Methods(http.MethodOptions)
}

// OpenSession starts a calendar session for ?tz= (default: server timezone)
// showing ?month=YYYY-MM (default: the current month in that timezone).
func (h *CalendarHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	loc := h.DefaultLocation
	if tzName := strings.TrimSpace(r.URL.Query().Get("tz")); tzName != "" {
		parsed, err := time.LoadLocation(tzName)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid timezone: "+tzName)
			return
		}
		loc = parsed
	}

	month := calendar.MonthOf(h.Clock().In(loc))
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := calendar.ParseMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = parsed
	}

	snap := h.Service.Open(loc, month)
	if wantsWait(r) {
		waited, err := h.wait(r, snap.ID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		snap = waited
	}
	writeJSON(w, http.StatusCreated, calendar.BuildView(snap.ID, snap.State))
}

// GetSession returns the session's current view. With ?wait=1 it blocks
// until the in-flight round has settled.
func (h *CalendarHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var (
		snap calendar.Snapshot
		err  error
	)
	if wantsWait(r) {
		snap, err = h.wait(r, id)
	} else {
		snap, err = h.Service.Get(id)
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calendar.BuildView(snap.ID, snap.State))
}

// Navigate switches the session to ?month=YYYY-MM.
func (h *CalendarHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	month, err := calendar.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := h.Service.Navigate(sessionID(r), month)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.respondMaybeWait(w, r, snap)
}

// Reload refetches the displayed month.
func (h *CalendarHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Reload(sessionID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.respondMaybeWait(w, r, snap)
}

// Select marks ?date=YYYY-MM-DD as the active day.
func (h *CalendarHandler) Select(w http.ResponseWriter, r *http.Request) {
	key := calendar.DateKey(strings.TrimSpace(r.URL.Query().Get("date")))
	snap, err := h.Service.Select(sessionID(r), key)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calendar.BuildView(snap.ID, snap.State))
}

// CloseSession drops the session.
func (h *CalendarHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Close(sessionID(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportICS serves the session's grid as an iCalendar feed.
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wait(r, sessionID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	body := calendar.ExportICS(snap.State, r.URL.Query().Get("name"), h.Clock())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="airing-`+snap.State.Month().String()+`.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// GetStatus reports the background refresh worker's state.
func (h *CalendarHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.GetStatus())
}

// Options handles CORS preflight.
func (h *CalendarHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *CalendarHandler) respondMaybeWait(w http.ResponseWriter, r *http.Request, snap calendar.Snapshot) {
	if wantsWait(r) {
		waited, err := h.wait(r, snap.ID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		snap = waited
	}
	writeJSON(w, http.StatusOK, calendar.BuildView(snap.ID, snap.State))
}

func (h *CalendarHandler) wait(r *http.Request, id string) (calendar.Snapshot, error) {
	ctx, cancel := context.WithTimeout(r.Context(), maxWait)
	defer cancel()
	return h.Service.Wait(ctx, id)
}

func (h *CalendarHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, calendar.ErrInvalidDateKey), errors.Is(err, calendar.ErrDateOutsideGrid), errors.Is(err, calendar.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "calendar is still loading")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["sessionID"])
}

func wantsWait(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("wait")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
