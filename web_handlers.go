package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // demo UI, any origin
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
}

var wsHub *WSHub

func init() {
	wsHub = NewHub()
	go wsHub.Run()
}

// NewHub creates a new WebSocket hub
func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 16),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		// channel full, skip this update
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			Logger.Error().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Error().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Error().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer
func ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  wsHub,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SessionStatus is the /api/status response: the caller's rooms, the
// payload the next publish would carry, and broker health.
type SessionStatus struct {
	Rooms     map[string]WebRoomState `json:"rooms"`
	Payload   interface{}             `json:"payload"`
	Session   string                  `json:"session"`
	Topic     string                  `json:"topic"`
	Connected bool                    `json:"connected"`
	Sessions  int                     `json:"sessions"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("Error encoding response")
	}
}

// APIStatus returns the caller's session state as JSON
func APIStatus(w http.ResponseWriter, r *http.Request) {
	id, house := sessions.FromRequest(w, r)
	writeJSON(w, SessionStatus{
		Session:   id,
		Rooms:     roomStates(house),
		Payload:   ProjectPayload(house),
		Topic:     Config.GetString("topic"),
		Connected: IsConnected(),
		Sessions:  sessions.Count(),
	})
}

type deviceRequest struct {
	Room  string      `json:"room"`
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

type mutationResponse struct {
	Payload   interface{} `json:"payload"`
	Message   string      `json:"message,omitempty"`
	Room      string      `json:"room,omitempty"`
	OK        bool        `json:"ok"`
	Delivered bool        `json:"delivered"`
}

func roomByName(name string) (state.Room, bool) {
	for _, room := range state.Rooms() {
		if room.String() == name {
			return room, true
		}
	}
	return 0, false
}

// APIDevice mutates a single field of the caller's session and publishes
// the projected result. Out-of-range fan and brightness values are
// clamped, never rejected.
func APIDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	id, house := sessions.FromRequest(w, r)

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}
	room, ok := roomByName(req.Room)
	if !ok {
		http.Error(w, "Unknown room", http.StatusBadRequest)
		return
	}

	switch req.Field {
	case "light_on":
		v, ok := req.Value.(bool)
		if !ok {
			http.Error(w, "light_on expects a boolean", http.StatusBadRequest)
			return
		}
		house.SetLight(room, v)
	case "brightness":
		v, ok := req.Value.(float64)
		if !ok {
			http.Error(w, "brightness expects a number", http.StatusBadRequest)
			return
		}
		house.SetBrightness(room, int(v))
	case "fan_speed":
		v, ok := req.Value.(float64)
		if !ok {
			http.Error(w, "fan_speed expects a number", http.StatusBadRequest)
			return
		}
		house.SetFanSpeed(room, int(v))
	case "door_closed":
		v, ok := req.Value.(bool)
		if !ok {
			http.Error(w, "door_closed expects a boolean", http.StatusBadRequest)
			return
		}
		house.SetDoorClosed(room, v)
	case "presence":
		v, ok := req.Value.(bool)
		if !ok {
			http.Error(w, "presence expects a boolean", http.StatusBadRequest)
			return
		}
		house.SetPresence(room, v)
	default:
		http.Error(w, "Unknown field", http.StatusBadRequest)
		return
	}

	payload, delivered := PublishHouseState(id, house)
	writeJSON(w, mutationResponse{OK: true, Room: room.String(), Payload: payload, Delivered: delivered})
}

type commandRequest struct {
	Text string `json:"text"`
}

// APICommand runs a free-text Spanish command against the caller's
// session. An unrecognized room or phrase is user-visible status text,
// never an HTTP failure.
func APICommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	id, house := sessions.FromRequest(w, r)

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	room, mutated, err := state.Interpret(req.Text, house)
	if errors.Is(err, state.ErrAmbiguousRoom) {
		writeJSON(w, mutationResponse{OK: false, Message: "no se reconoció la habitación", Payload: ProjectPayload(house)})
		return
	}
	if !mutated {
		writeJSON(w, mutationResponse{OK: false, Room: room.String(), Message: "comando no reconocido", Payload: ProjectPayload(house)})
		return
	}

	payload, delivered := PublishHouseState(id, house)
	writeJSON(w, mutationResponse{OK: true, Room: room.String(), Payload: payload, Delivered: delivered})
}

type gestureRequest struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// APIGesture applies a classifier label to the caller's session. The
// confidence gate lives here, not in the mapper; labels below
// gesture_min_confidence are dropped with a message.
func APIGesture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	id, house := sessions.FromRequest(w, r)

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	if req.Confidence < Config.GetFloat64("gesture_min_confidence") {
		writeJSON(w, mutationResponse{OK: false, Message: "confianza insuficiente", Payload: ProjectPayload(house)})
		return
	}
	if !state.ApplyGesture(req.Label, house) {
		writeJSON(w, mutationResponse{OK: false, Message: "gesto no reconocido", Payload: ProjectPayload(house)})
		return
	}

	payload, delivered := PublishHouseState(id, house)
	writeJSON(w, mutationResponse{OK: true, Room: state.Sala.String(), Payload: payload, Delivered: delivered})
}

// APIGestureImage accepts a webcam snapshot, runs it through the remote
// classifier and applies the resulting gesture to the caller's session.
func APIGestureImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	if classifier == nil || !classifier.Enabled() {
		http.Error(w, "gesture classifier unavailable", http.StatusServiceUnavailable)
		return
	}
	id, house := sessions.FromRequest(w, r)

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image form file required", http.StatusBadRequest)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			Logger.Warn().Msgf("Error closing upload: %v", closeErr)
		}
	}()
	img, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading image", http.StatusBadRequest)
		return
	}

	result, err := classifier.Classify(img)
	if err != nil {
		Logger.Warn().Msgf("Error classifying gesture: %v", err)
		http.Error(w, "Error classifying gesture", http.StatusBadGateway)
		return
	}
	classifier.CacheSnapshot(img, result)

	if float64(result.Confidence) < Config.GetFloat64("gesture_min_confidence") {
		writeJSON(w, mutationResponse{OK: false, Message: "confianza insuficiente", Payload: ProjectPayload(house)})
		return
	}
	if !state.ApplyGesture(result.Label, house) {
		writeJSON(w, mutationResponse{OK: false, Message: "gesto no reconocido", Payload: ProjectPayload(house)})
		return
	}

	payload, delivered := PublishHouseState(id, house)
	writeJSON(w, mutationResponse{OK: true, Room: state.Sala.String(), Payload: payload, Delivered: delivered})
}

// APIPublish re-sends the caller's current state without mutating it.
func APIPublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	id, house := sessions.FromRequest(w, r)
	payload, delivered := PublishHouseState(id, house)
	writeJSON(w, mutationResponse{OK: true, Payload: payload, Delivered: delivered})
}

// APIReconnect tears down the broker client and dials again. This is the
// only retry surface; failed publishes are never retried automatically.
func APIReconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request Method", http.StatusBadRequest)
		return
	}
	Reconnect()
	writeJSON(w, map[string]interface{}{"connected": IsConnected()})
}

// HomeHandler serves the demo UI page
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/static/index.html")
}
