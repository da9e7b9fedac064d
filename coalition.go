/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Coalition Politics
//
// A teacher-run legislative game for the classroom. Students join political
// factions, trade political capital, negotiate over proposed policies and
// vote on them, while the teacher drives the rounds from a single console.
//
// Features:
// - One global session on /ws; no rooms or game ids
// - The teacher registers explicitly; any later teacher takes over the role
// - The first student to pick a faction leads it, and only leaders can vote,
//   trade tokens, message other factions or run scandal campaigns
// - Every inbound event is handled to completion by a single hub goroutine
// - Each connection gets its own view: the teacher sees everything,
//   students see their own faction in full and a redacted roster
// - Policy catalog served as JSON on /policies, replaceable at startup
// - QR code on /qr pointing students at the join page, backed by go-qrcode

package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/coalition/games"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Messages coming from clients
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Messages sent to clients
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ConnectionInfo tells clients where students should point their browsers.
type ConnectionInfo struct {
	LocalIP    string `json:"localIP"`
	JoinURL    string `json:"joinURL"`
	TeacherURL string `json:"teacherURL"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	connID string
}

type inbound struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	game    *games.Game
	info    ConnectionInfo
	clients map[string]*Client

	register chan *Client
	unreg    chan *Client
	incoming chan inbound
	done     chan struct{}

	logf func(format string, args ...any)
}

func newHub(game *games.Game, info ConnectionInfo, logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Hub{
		game:     game,
		info:     info,
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		incoming: make(chan inbound),
		done:     make(chan struct{}),
		logf:     logf,
	}
}

// run owns the game: every event is applied and fanned out before the next
// one is read.
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c.connID] = c
			h.logf("CONNS: Client %s connected", c.connID)

			h.deliver(h.game.Connect(c.connID))
			h.unicast(c.connID, games.EventConnectionInfo, h.info)

		case c := <-h.unreg:
			if existing, ok := h.clients[c.connID]; ok && existing == c {
				delete(h.clients, c.connID)
				close(c.send)
			}
			h.logf("CONNS: Client %s (%s) disconnected", c.connID, h.game.RoleOf(c.connID))

			h.deliver(h.game.Disconnect(c.connID))

		case in := <-h.incoming:
			cmd := games.DecodeCommand(in.msg.Type, in.msg.Payload)
			h.deliver(h.game.Handle(in.client.connID, cmd))

		case <-ctx.Done():
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			return
		}
	}
}

// deliver encodes each notification once, on the hub goroutine, so writers
// never touch game state.
func (h *Hub) deliver(deliveries []games.Delivery) {
	for _, d := range deliveries {
		data, err := json.Marshal(ServerMessage{Type: d.Event, Payload: d.Payload})
		if err != nil {
			log.Printf("%s | ERROR: encoding %s: %v", time.Now().Format(logDate), d.Event, err)
			continue
		}

		if d.Broadcast() {
			for _, c := range h.clients {
				h.push(c, data)
			}
			continue
		}

		for _, id := range d.To {
			if c, ok := h.clients[id]; ok {
				h.push(c, data)
			}
		}
	}
}

func (h *Hub) unicast(connID, event string, payload any) {
	h.deliver([]games.Delivery{{To: []string{connID}, Event: event, Payload: payload}})
}

// push never blocks the hub. A client that cannot keep up is dropped; its
// read pump then unregisters it.
func (h *Hub) push(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logf("CONNS: Dropping slow client %s", c.connID)
		delete(h.clients, c.connID)
		close(c.send)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			connID: uuid.NewString(),
		}

		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("%s | ERROR: client %s: %v", time.Now().Format(logDate), c.connID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logf("CONNS: Ignoring malformed frame from %s: %v", c.connID, err)
			continue
		}

		select {
		case h.incoming <- inbound{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// localIP returns the first non-loopback IPv4 address, for telling students
// where to connect on a classroom LAN.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}

func newConnectionInfo(cfg *Config) ConnectionInfo {
	ip := localIP()
	host := ip
	if cfg.bind != "" && cfg.bind != "0.0.0.0" && cfg.bind != "::" {
		host = cfg.bind
	}
	base := cfg.scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(cfg.port)) + cfg.prefix
	return ConnectionInfo{
		LocalIP:    ip,
		JoinURL:    base + "/",
		TeacherURL: base + "/teacher",
	}
}

// qrHandler generates a PNG QR code for the student join page, derived from
// the host the teacher is browsing from.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(strings.TrimSuffix(r.URL.Path, "/qr"), "/") + "/"

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func servePolicies(cfg *Config, catalog *games.Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := json.Marshal(catalog.Policies())
		if err != nil {
			errs <- err
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// registerCoalitionGame sets up routes so that:
//   - $prefix/ and $prefix/teacher → HTML client
//   - $prefix/ws                   → WebSocket for the session
//   - $prefix/qr                   → PNG QR code of the join page
//   - $prefix/policies             → policy catalog as JSON
func registerCoalitionGame(cfg *Config, h *Hub, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))
	mux.GET(cfg.prefix+"/teacher", serveHomePage(cfg, errs))

	mux.GET(cfg.prefix+"/ws", serveWS(h))

	mux.GET(cfg.prefix+"/qr", qrHandler(cfg))

	mux.GET(cfg.prefix+"/policies", servePolicies(cfg, h.game.Catalog(), errs))
}
