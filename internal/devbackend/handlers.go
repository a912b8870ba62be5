package devbackend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"kioskboard/internal/models"
	"kioskboard/internal/utils"
)

// NewRouter exposes store over the REST API the kiosk consumes.
func NewRouter(store *Store, log *utils.Logger) *mux.Router {
	if log == nil {
		log = utils.NewNopLogger()
	}
	h := &handler{store: store, log: log}
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
	}).Methods("GET")

	r.HandleFunc("/api/checkin/", h.listCheckIns).Methods("GET")
	r.HandleFunc("/api/checkin/checkin", h.checkIn).Methods("POST")
	r.HandleFunc("/api/checkin/completeCheckin", h.completeCheckIn).Methods("POST")

	r.HandleFunc("/api/orders/", h.listOrders).Methods("GET")
	r.HandleFunc("/api/orders/{id}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/orders/{id}/status", h.updateStatus).Methods("PUT")
	return r
}

type handler struct {
	store *Store
	log   *utils.Logger
}

func (h *handler) listCheckIns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ActiveCheckIns())
}

func (h *handler) checkIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.store.CheckIn(req.Phone, req.Name)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.WithFields(map[string]any{"action": "checkin", "phone": res.CustomerPhone, "points": res.RewardPoints}).Info("customer checked in")
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) completeCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeMessage(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.store.CompleteCheckIn(req.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Check-in completed"})
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orders": h.store.ActiveOrders()})
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, items, err := h.store.Order(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "orderDetails": items})
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SetOrderStatus(id, status); err != nil {
		writeStoreError(w, err)
		return
	}
	h.log.WithFields(map[string]any{"action": "order_status", "id": id, "status": status}).Info("order status updated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order status updated"})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	writeMessage(w, http.StatusInternalServerError, err.Error())
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
