package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/bbbot/internal/game"
)

type gameResponse struct {
	Group      string       `json:"group"`
	Location   string       `json:"location"`
	Day        string       `json:"day"`
	Time       string       `json:"time"`
	Label      string       `json:"label"`
	Capacity   int          `json:"capacity"`
	MinMembers int          `json:"min_members"`
	CreatedBy  string       `json:"created_by"`
	Players    []game.Entry `json:"players"`
	Waitlist   []game.Entry `json:"waitlist"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleGetGame(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group_id"]
	snap, ok := a.games.Session(group)
	if !ok {
		http.Error(w, "no game active", http.StatusNotFound)
		return
	}

	resp := gameResponse{
		Group:      snap.Group,
		Location:   snap.Location,
		Day:        snap.Day,
		Time:       snap.Time,
		Label:      snap.Label,
		Capacity:   snap.Capacity,
		MinMembers: snap.MinMembers,
		CreatedBy:  snap.CreatedBy,
		Players:    snap.Players,
		Waitlist:   snap.Waitlist,
	}
	if resp.Players == nil {
		resp.Players = []game.Entry{}
	}
	if resp.Waitlist == nil {
		resp.Waitlist = []game.Entry{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListLocations(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group_id"]
	locations := a.registry.Locations(group)
	if locations == nil {
		locations = []string{}
	}
	writeJSON(w, http.StatusOK, locations)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	members := a.registry.Members(vars["group_id"], vars["location"])
	if members == nil {
		members = []string{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  claims.UserID,
		"username": claims.Username,
	})
}

// requireAdmin writes 403 and returns false unless the caller administers group.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request, group string) bool {
	claims := claimsFrom(r.Context())
	if claims == nil || !a.registry.IsAdmin(claims.UserID, group) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (a *API) handleApproveLocation(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group_id"]
	if !a.requireAdmin(w, r, group) {
		return
	}

	var req struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Location) == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.registry.ApproveLocation(r.Context(), group, req.Location); err != nil {
		log.Error().Err(err).Str("module", "api").Str("group", group).Msg("approve location failed")
		http.Error(w, "failed to approve location", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "location approved",
	})
}

func (a *API) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group_id"]
	if !a.requireAdmin(w, r, group) {
		return
	}

	var req struct {
		UserID   string `json:"user_id"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || strings.TrimSpace(req.Location) == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.registry.RegisterMember(r.Context(), group, req.UserID, req.Location); err != nil {
		log.Error().Err(err).Str("module", "api").Str("group", group).Msg("register member failed")
		http.Error(w, "failed to register member", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "member registered",
	})
}

func (a *API) handleCancelGame(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group_id"]
	if !a.requireAdmin(w, r, group) {
		return
	}
	a.games.Cancel(r.Context(), group)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "game cancelled",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("module", "api").Msg("failed to write response")
	}
}
