package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

type testMutationResponse struct {
	OK        bool                `json:"ok"`
	Delivered bool                `json:"delivered"`
	Room      string              `json:"room"`
	Message   string              `json:"message"`
	Payload   state.StatusPayload `json:"payload"`
}

func setupWebTest(t *testing.T) {
	t.Helper()
	LogInit("warn")
	SetupConfig()
	Config.Set("payload_shape", "full")
	sessions = NewSessionManager()
	oldClient := Client
	Client = nil // broker down: publishes report undelivered
	t.Cleanup(func() { Client = oldClient })
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}, cookie *http.Cookie) (*httptest.ResponseRecorder, testMutationResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp testMutationResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, resp
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAPICommandEncenderLuzSala(t *testing.T) {
	setupWebTest(t)

	rec, resp := postJSON(t, APICommand, "/api/command", commandRequest{Text: "encender luz sala"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !resp.OK {
		t.Fatalf("command rejected: %s", resp.Message)
	}
	if resp.Room != "sala" {
		t.Errorf("room = %q, expected sala", resp.Room)
	}
	if resp.Payload.Act1 != "ON" {
		t.Errorf("Act1 = %q, expected ON", resp.Payload.Act1)
	}
	if resp.Delivered {
		t.Error("no broker is connected, delivered should be false")
	}

	// mutation survives the failed publish
	cookie := sessionCookieFrom(t, rec)
	house := sessions.House(cookie.Value)
	if !house.Get(state.Sala).LightOn {
		t.Error("sala light should stay on despite the failed publish")
	}
}

func TestAPICommandCerrarPuertaHabitacion(t *testing.T) {
	setupWebTest(t)

	// open the sala door first so the close is visible
	rec, _ := postJSON(t, APICommand, "/api/command", commandRequest{Text: "abrir puerta sala"}, nil)
	cookie := sessionCookieFrom(t, rec)

	_, resp := postJSON(t, APICommand, "/api/command", commandRequest{Text: "cerrar puerta habitacion"}, cookie)
	if !resp.OK {
		t.Fatalf("command rejected: %s", resp.Message)
	}
	if resp.Payload.Analog != 0 {
		t.Errorf("Analog = %d, expected 0: door commands close the sala door", resp.Payload.Analog)
	}
	house := sessions.House(cookie.Value)
	if !house.Get(state.Sala).DoorClosed {
		t.Error("sala door should be closed")
	}
	if !house.Get(state.Habitacion).DoorClosed {
		t.Error("habitacion door defaults closed and must stay untouched")
	}
}

func TestAPICommandAmbiguousRoom(t *testing.T) {
	setupWebTest(t)

	rec, resp := postJSON(t, APICommand, "/api/command", commandRequest{Text: "hola mundo"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ambiguous command must not be an HTTP error, got %d", rec.Code)
	}
	if resp.OK {
		t.Error("ambiguous command should report ok=false")
	}
	if resp.Message == "" {
		t.Error("ambiguous command should carry a user-visible message")
	}

	cookie := sessionCookieFrom(t, rec)
	house := sessions.House(cookie.Value)
	if house.Get(state.Sala) != state.NewHouse().Get(state.Sala) {
		t.Error("ambiguous command must not mutate state")
	}
}

func TestAPICommandBajarVentiladorClamped(t *testing.T) {
	setupWebTest(t)

	_, resp := postJSON(t, APICommand, "/api/command", commandRequest{Text: "bajar ventilador sala"}, nil)
	if !resp.OK {
		t.Fatalf("command rejected: %s", resp.Message)
	}
	if resp.Payload.Vent != 0 {
		t.Errorf("Vent = %d, expected 0 (clamped at lower bound)", resp.Payload.Vent)
	}
}

func TestAPIDeviceClampsFanSpeed(t *testing.T) {
	setupWebTest(t)

	_, resp := postJSON(t, APIDevice, "/api/device",
		deviceRequest{Room: "sala", Field: "fan_speed", Value: 9.0}, nil)
	if !resp.OK {
		t.Fatalf("device mutation rejected: %s", resp.Message)
	}
	if resp.Payload.Vent != 3 {
		t.Errorf("Vent = %d, expected 3 (clamped)", resp.Payload.Vent)
	}
}

func TestAPIDeviceUnknownRoom(t *testing.T) {
	setupWebTest(t)

	rec, _ := postJSON(t, APIDevice, "/api/device",
		deviceRequest{Room: "cocina", Field: "light_on", Value: true}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown room should be a 400, got %d", rec.Code)
	}
}

func TestAPIGesturePuertaAbierta(t *testing.T) {
	setupWebTest(t)

	_, resp := postJSON(t, APIGesture, "/api/gesture",
		gestureRequest{Label: state.GesturePuertaAbierta, Confidence: 0.9}, nil)
	if !resp.OK {
		t.Fatalf("gesture rejected: %s", resp.Message)
	}
	if resp.Payload.Analog != 100 {
		t.Errorf("Analog = %d, expected 100 after puerta_abierta", resp.Payload.Analog)
	}
}

func TestAPIGestureBelowConfidenceGate(t *testing.T) {
	setupWebTest(t)

	rec, resp := postJSON(t, APIGesture, "/api/gesture",
		gestureRequest{Label: state.GestureLuzOn, Confidence: 0.1}, nil)
	if resp.OK {
		t.Error("low-confidence gesture should be dropped")
	}

	cookie := sessionCookieFrom(t, rec)
	if sessions.House(cookie.Value).Get(state.Sala).LightOn {
		t.Error("low-confidence gesture must not mutate state")
	}
}

func TestAPIGestureUnknownLabel(t *testing.T) {
	setupWebTest(t)

	_, resp := postJSON(t, APIGesture, "/api/gesture",
		gestureRequest{Label: "saludo", Confidence: 0.99}, nil)
	if resp.OK {
		t.Error("unknown label should report ok=false")
	}
	if resp.Message == "" {
		t.Error("unknown label should carry a message")
	}
}

func TestAPIStatusFreshSession(t *testing.T) {
	setupWebTest(t)

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	APIStatus(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Session == "" {
		t.Error("status should carry a session id")
	}
	if len(status.Rooms) != 2 {
		t.Errorf("expected 2 rooms, got %d", len(status.Rooms))
	}
	if status.Connected {
		t.Error("no broker is connected in tests")
	}
	sala, ok := status.Rooms["sala"]
	if !ok {
		t.Fatal("missing sala room state")
	}
	if sala.LightOn || !sala.DoorClosed || sala.FanSpeed != 0 || sala.Brightness != 50 {
		t.Errorf("fresh sala state unexpected: %+v", sala)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	setupWebTest(t)

	recA, _ := postJSON(t, APICommand, "/api/command", commandRequest{Text: "encender luz sala"}, nil)
	cookieA := sessionCookieFrom(t, recA)

	recB, _ := postJSON(t, APICommand, "/api/command", commandRequest{Text: "abrir puerta sala"}, nil)
	cookieB := sessionCookieFrom(t, recB)

	if cookieA.Value == cookieB.Value {
		t.Fatal("two cookie-less requests should mint distinct sessions")
	}
	houseA := sessions.House(cookieA.Value)
	houseB := sessions.House(cookieB.Value)
	if !houseA.Get(state.Sala).LightOn || !houseA.Get(state.Sala).DoorClosed {
		t.Error("session A state wrong")
	}
	if houseB.Get(state.Sala).LightOn || houseB.Get(state.Sala).DoorClosed {
		t.Error("session B state wrong")
	}
}

func TestAPIPublishDoesNotMutate(t *testing.T) {
	setupWebTest(t)

	rec, resp := postJSON(t, APIPublish, "/api/publish", nil, nil)
	if !resp.OK {
		t.Fatal("manual publish should report ok")
	}
	if resp.Delivered {
		t.Error("no broker is connected, delivered should be false")
	}
	fresh := state.ProjectFullHouse(state.NewHouse())
	if resp.Payload != fresh {
		t.Errorf("payload = %+v, expected fresh-state projection %+v", resp.Payload, fresh)
	}

	cookie := sessionCookieFrom(t, rec)
	if sessions.House(cookie.Value).Get(state.Sala) != state.NewHouse().Get(state.Sala) {
		t.Error("manual publish must not mutate state")
	}
}

func TestPayloadShapeDoorLight(t *testing.T) {
	setupWebTest(t)
	Config.Set("payload_shape", "door_light")
	defer Config.Set("payload_shape", "full")

	rec, _ := postJSON(t, APICommand, "/api/command", commandRequest{Text: "encender luz sala"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"Act1":"ON"`) {
		t.Errorf("legacy payload missing Act1: %s", body)
	}
	if strings.Contains(body, `"Vent"`) || strings.Contains(body, `"Act2"`) {
		t.Errorf("legacy payload must only carry Act1 and Analog: %s", body)
	}
}
