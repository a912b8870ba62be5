package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"kioskboard/internal/auth"
	"kioskboard/internal/kitchen"
	"kioskboard/internal/models"
	"kioskboard/internal/screen"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) kioskPage(w http.ResponseWriter, r *http.Request) {
	st := s.screen.State()
	if st.Screen == screen.Kitchen {
		http.Redirect(w, r, "/kitchen", http.StatusSeeOther)
		return
	}
	s.renderKiosk(w, http.StatusOK, st, "")
}

func (s *Server) renderKiosk(w http.ResponseWriter, status int, st screen.State, msg string) {
	s.render(w, status, "kiosk", kioskData{
		State:        st,
		Error:        msg,
		ResetSeconds: int(math.Ceil(s.screen.Timeout().Seconds())),
	})
}

func (s *Server) kioskState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.screen.State())
}

// Begin and OpenKitchen from a stale page just land on whatever screen is current.
func (s *Server) kioskBegin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.screen.Begin(); err != nil {
		s.log.WithError(err).Debug("begin ignored")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) kioskKitchen(w http.ResponseWriter, r *http.Request) {
	if _, err := s.screen.OpenKitchen(); err != nil {
		s.log.WithError(err).Debug("open kitchen ignored")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/kitchen", http.StatusSeeOther)
}

func (s *Server) kioskCheckIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.screen.SetInput(r.PostFormValue("phone"), r.PostFormValue("name"))

	// The customer may walk away mid-request; the check-in still goes through.
	st, err := s.screen.Submit(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, screen.ErrPhoneRequired):
		s.renderKiosk(w, http.StatusUnprocessableEntity, st, "Please enter your phone number.")
	case errors.Is(err, screen.ErrSubmitInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) kioskReset(w http.ResponseWriter, r *http.Request) {
	s.screen.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"), "/kitchen")
	if s.auth.IsAuthenticated(r) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", loginData{Next: next})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	next := auth.SafeNext(r.PostFormValue("next"), "/kitchen")
	err := s.auth.Login(w, r, r.PostFormValue("pin"))
	if errors.Is(err, auth.ErrInvalidPIN) {
		s.render(w, http.StatusUnauthorized, "login", loginData{Next: next, Error: "Wrong PIN"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("staff login failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(w, r); err != nil {
		s.log.WithError(err).Warn("staff logout failed")
	}
	s.screen.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) kitchenPage(w http.ResponseWriter, r *http.Request) {
	tab := kitchen.ParseTab(r.URL.Query().Get("tab"))
	s.render(w, http.StatusOK, "kitchen", kitchenData{View: s.board.View(tab), StaffAuth: s.auth.Enabled()})
}

func (s *Server) kitchenState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.View(kitchen.ParseTab(r.URL.Query().Get("tab"))))
}

func (s *Server) completeCheckIn(w http.ResponseWriter, r *http.Request) {
	err := s.board.CheckIns.Complete(context.WithoutCancel(r.Context()), mux.Vars(r)["id"])
	s.afterAction(w, r, err, kitchen.TabCustomers)
}

func (s *Server) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := models.ParseOrderStatus(r.FormValue("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = s.board.Orders.SetStatus(context.WithoutCancel(r.Context()), mux.Vars(r)["id"], status)
	s.afterAction(w, r, err, kitchen.TabOrders)
}

func (s *Server) advanceOrder(w http.ResponseWriter, r *http.Request) {
	err := s.board.Orders.Advance(context.WithoutCancel(r.Context()), mux.Vars(r)["id"])
	s.afterAction(w, r, err, kitchen.TabOrders)
}

func (s *Server) completeOrder(w http.ResponseWriter, r *http.Request) {
	err := s.board.Orders.Complete(context.WithoutCancel(r.Context()), mux.Vars(r)["id"])
	s.afterAction(w, r, err, kitchen.TabOrders)
}

// afterAction sends the browser back to the board. Backend failures were
// already logged by the board and leave the stale rows in place.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, err error, tab kitchen.Tab) {
	switch {
	case errors.Is(err, kitchen.ErrInFlight), errors.Is(err, kitchen.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, kitchen.ErrUnknownOrder):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, kitchen.ErrNotMounted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if raw := r.FormValue("tab"); raw != "" {
		tab = kitchen.ParseTab(raw)
	}
	http.Redirect(w, r, "/kitchen?tab="+string(tab), http.StatusSeeOther)
}
