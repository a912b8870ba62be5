package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tealeg/xlsx"
	"golang.org/x/crypto/bcrypt"

	"kioskboard/internal/auth"
	"kioskboard/internal/backend"
	"kioskboard/internal/config"
	"kioskboard/internal/devbackend"
	"kioskboard/internal/kitchen"
	"kioskboard/internal/models"
	"kioskboard/internal/poll/polltest"
	"kioskboard/internal/screen"
)

type harness struct {
	store  *devbackend.Store
	board  *kitchen.Board
	screen *screen.Router
	clock  *polltest.Clock
	srv    *httptest.Server
}

func newHarness(t *testing.T, pinHash string) *harness {
	t.Helper()
	store := devbackend.NewStore()
	store.Seed()
	backendSrv := httptest.NewServer(devbackend.NewRouter(store, nil))
	t.Cleanup(backendSrv.Close)

	cfg := config.Default()
	cfg.BackendURL = backendSrv.URL
	client := backend.NewClient(cfg, backendSrv.Client(), nil)

	clock := polltest.NewClock()
	board := kitchen.NewBoard(
		kitchen.NewCheckInFeed(client, clock, cfg.PollInterval, nil),
		kitchen.NewOrderBoard(client, clock, cfg.PollInterval, nil),
	)
	board.Mount()
	t.Cleanup(board.Unmount)

	router := screen.NewRouter(client, clock, cfg.ConfirmationTimeout, nil)
	staff, err := auth.New(pinHash, "", nil)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	s, err := NewServer(board, router, staff, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(s.Close)

	h := &harness{store: store, board: board, screen: router, clock: clock, srv: srv}
	h.waitFor(t, "seeded orders", func() bool {
		v := board.View(kitchen.TabOrders)
		return len(v.Orders) == 2 && v.Orders[0].ItemsLoaded && v.Orders[1].ItemsLoaded
	})
	return h
}

func (h *harness) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// client does not follow redirects so tests can see the 303s.
func (h *harness) client() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func (h *harness) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := h.client().PostForm(h.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client().Get(h.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "")
	resp, body := h.get(t, "/health")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != "OK" {
		t.Fatalf("health = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestKioskCheckInFlow(t *testing.T) {
	h := newHarness(t, "")

	_, body := h.get(t, "/")
	if !strings.Contains(body, "Tap to check in") {
		t.Fatal("welcome screen not rendered")
	}
	expectRedirect(t, h.post(t, "/kiosk/begin", nil), "/")
	_, body = h.get(t, "/")
	if !strings.Contains(body, `name="phone"`) {
		t.Fatal("check-in form not rendered")
	}

	expectRedirect(t, h.post(t, "/kiosk/checkin", url.Values{"phone": {"555"}, "name": {"Ann"}}), "/")
	_, body = h.get(t, "/")
	if !strings.Contains(body, "Thank you, Ann") || !strings.Contains(body, `http-equiv="refresh" content="8"`) {
		t.Fatalf("success screen not rendered:\n%s", body)
	}

	h.clock.Advance(8 * time.Second)
	_, body = h.get(t, "/kiosk/state")
	var st screen.State
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Screen != screen.Welcome || st.Phone != "" || st.Name != "" {
		t.Fatalf("state after timeout = %+v", st)
	}
	if got := h.store.ActiveCheckIns(); len(got) != 1 || got[0].Phone != "555" {
		t.Fatalf("backend check-ins = %+v", got)
	}
}

func TestKioskCheckInWithoutPhone(t *testing.T) {
	h := newHarness(t, "")
	h.post(t, "/kiosk/begin", nil)

	resp := h.post(t, "/kiosk/checkin", url.Values{"phone": {" "}, "name": {"Ann"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if h.screen.State().Screen != screen.CheckIn {
		t.Fatal("left the check-in form without a phone")
	}
}

func TestStaleKioskButtonsKeepCurrentScreen(t *testing.T) {
	h := newHarness(t, "")
	expectRedirect(t, h.post(t, "/kiosk/begin", nil), "/")

	expectRedirect(t, h.post(t, "/kiosk/begin", nil), "/")
	if got := h.screen.State().Screen; got != screen.CheckIn {
		t.Fatalf("screen after repeated begin = %s, want %s", got, screen.CheckIn)
	}
	expectRedirect(t, h.post(t, "/kiosk/kitchen", nil), "/")
	if got := h.screen.State().Screen; got != screen.CheckIn {
		t.Fatalf("screen after stale kitchen = %s, want %s", got, screen.CheckIn)
	}
}

func TestKitchenBoardRendersOrders(t *testing.T) {
	h := newHarness(t, "")
	resp, body := h.get(t, "/kitchen")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"John Doe", "Jane Smith", "Pho Bo", "No cilantro", "$25.50"} {
		if !strings.Contains(body, want) {
			t.Errorf("board missing %q", want)
		}
	}

	_, body = h.get(t, "/kitchen?tab=customers")
	if !strings.Contains(body, "No customers waiting") {
		t.Fatal("customers tab not rendered")
	}
}

func TestCompleteOrderRedirectsAndRefreshes(t *testing.T) {
	h := newHarness(t, "")
	order := h.board.Orders.Snapshot()[0]

	expectRedirect(t, h.post(t, "/kitchen/orders/"+order.ID+"/complete", nil), "/kitchen?tab=orders")

	if got := h.store.ActiveOrders(); len(got) != 1 || got[0].ID == order.ID {
		t.Fatalf("backend still lists completed order: %+v", got)
	}
	if got := h.board.Orders.Snapshot(); len(got) != 1 {
		t.Fatalf("board not refreshed after complete: %d orders", len(got))
	}
}

func TestOrderActionErrors(t *testing.T) {
	h := newHarness(t, "")
	order := h.board.Orders.Snapshot()[0]

	if resp := h.post(t, "/kitchen/orders/"+order.ID+"/status", url.Values{"status": {"cooking"}}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status = %d, want 400", resp.StatusCode)
	}
	if resp := h.post(t, "/kitchen/orders/nope/advance", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown order = %d, want 404", resp.StatusCode)
	}

	expectRedirect(t, h.post(t, "/kitchen/orders/"+order.ID+"/advance", url.Values{"tab": {"history"}}), "/kitchen?tab=history")
	o, _, err := h.store.Order(order.ID)
	if err != nil {
		t.Fatalf("store.Order: %v", err)
	}
	if o.Status != models.StatusPreparing {
		t.Fatalf("status after advance = %s", o.Status)
	}
}

func TestCompleteCheckIn(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.store.CheckIn("555", "Ann"); err != nil {
		t.Fatalf("seed check-in: %v", err)
	}
	if err := h.board.CheckIns.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	id := h.board.CheckIns.Snapshot()[0].ID

	expectRedirect(t, h.post(t, "/kitchen/checkins/"+id+"/complete", url.Values{"tab": {"customers"}}), "/kitchen?tab=customers")
	if len(h.board.CheckIns.Snapshot()) != 0 {
		t.Fatal("check-in still on the board after complete")
	}
}

func TestKitchenRequiresStaffLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("2468"), bcrypt.MinCost)
	h := newHarness(t, string(hash))

	resp, _ := h.get(t, "/kitchen")
	if resp.StatusCode != http.StatusSeeOther || !strings.HasPrefix(resp.Header.Get("Location"), auth.LoginPath) {
		t.Fatalf("unauthenticated kitchen = %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	if resp := h.post(t, auth.LoginPath, url.Values{"pin": {"0000"}}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong PIN = %d", resp.StatusCode)
	}

	resp = h.post(t, auth.LoginPath, url.Values{"pin": {"2468"}, "next": {"/kitchen?tab=history"}})
	expectRedirect(t, resp, "/kitchen?tab=history")

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/kitchen", nil)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	authed, err := h.client().Do(req)
	if err != nil {
		t.Fatalf("GET /kitchen: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authenticated kitchen = %d", authed.StatusCode)
	}
}

func TestHistoryExport(t *testing.T) {
	h := newHarness(t, "")
	resp, body := h.get(t, "/kitchen/history.xlsx")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment; filename=order-history-") {
		t.Fatalf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}

	file, err := xlsx.OpenBinary([]byte(body))
	if err != nil {
		t.Fatalf("OpenBinary: %v", err)
	}
	sheet := file.Sheets[0]
	if len(sheet.Rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 orders", len(sheet.Rows))
	}
	if got := sheet.Rows[0].Cells[0].Value; got != "Order Number" {
		t.Fatalf("first header = %q", got)
	}
}

func TestWebsocketPushesBoardView(t *testing.T) {
	h := newHarness(t, "")
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/kitchen/ws?tab=orders"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view kitchen.BoardView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if view.Tab != kitchen.TabOrders || len(view.Orders) != 2 {
		t.Fatalf("first push = tab %s, %d orders", view.Tab, len(view.Orders))
	}

	order := view.Orders[0]
	if err := h.board.Orders.Complete(context.Background(), order.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	for {
		if err := conn.ReadJSON(&view); err != nil {
			t.Fatalf("ReadJSON after change: %v", err)
		}
		if len(view.Orders) == 1 {
			break
		}
	}
}
