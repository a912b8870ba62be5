package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"kioskboard/internal/auth"
	"kioskboard/internal/kitchen"
	"kioskboard/internal/screen"
	"kioskboard/internal/utils"
)

// Server renders the kiosk and kitchen screens and turns form posts into
// screen transitions and board actions.
type Server struct {
	board    *kitchen.Board
	screen   *screen.Router
	auth     *auth.Auth
	log      *utils.Logger
	pages    pages
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

func NewServer(board *kitchen.Board, router *screen.Router, staff *auth.Auth, log *utils.Logger) (*Server, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		board:  board,
		screen: router,
		auth:   staff,
		log:    log.WithFields(map[string]any{"component": "api"}),
		pages:  p,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		done: make(chan struct{}),
	}, nil
}

// Close ends open websocket streams. http.Server.Shutdown does not track hijacked connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			s.log.WithError(err).Warn("health write failed")
		}
	}).Methods("GET")

	r.HandleFunc("/", s.kioskPage).Methods("GET")
	r.HandleFunc("/kiosk/state", s.kioskState).Methods("GET")
	r.HandleFunc("/kiosk/begin", s.kioskBegin).Methods("POST")
	r.HandleFunc("/kiosk/kitchen", s.kioskKitchen).Methods("POST")
	r.HandleFunc("/kiosk/checkin", s.kioskCheckIn).Methods("POST")
	r.HandleFunc("/kiosk/reset", s.kioskReset).Methods("POST")

	r.HandleFunc(auth.LoginPath, s.loginPage).Methods("GET")
	r.HandleFunc(auth.LoginPath, s.login).Methods("POST")
	r.HandleFunc("/staff/logout", s.logout).Methods("POST")

	r.Handle("/kitchen", s.staff(s.kitchenPage)).Methods("GET")
	r.Handle("/kitchen/state", s.staff(s.kitchenState)).Methods("GET")
	r.Handle("/kitchen/ws", s.staff(s.kitchenSocket)).Methods("GET")
	r.Handle("/kitchen/history.xlsx", s.staff(s.exportHistory)).Methods("GET")
	r.Handle("/kitchen/checkins/{id}/complete", s.staff(s.completeCheckIn)).Methods("POST")
	r.Handle("/kitchen/orders/{id}/status", s.staff(s.setOrderStatus)).Methods("POST")
	r.Handle("/kitchen/orders/{id}/advance", s.staff(s.advanceOrder)).Methods("POST")
	r.Handle("/kitchen/orders/{id}/complete", s.staff(s.completeOrder)).Methods("POST")
	return r
}

func (s *Server) staff(h http.HandlerFunc) http.Handler {
	return s.auth.Middleware(h)
}
