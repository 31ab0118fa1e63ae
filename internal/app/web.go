// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/logger"
	"github.com/relabs-tech/qibla_compass/internal/qibla"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsMessage is pushed to every websocket client.
type wsMessage struct {
	Type        string             `json:"type"` // result, orientation
	Result      *qibla.Result      `json:"result,omitempty"`
	Orientation *qibla.Orientation `json:"orientation,omitempty"`
}

// clientBuffer is how many messages a slow websocket client may fall
// behind before updates to it are dropped.
const clientBuffer = 16

// webServer keeps the latest values seen on MQTT and fans them out to
// websocket clients.
type webServer struct {
	log logrus.FieldLogger

	mu              sync.RWMutex
	result          qibla.Result
	haveResult      bool
	orientation     qibla.Orientation
	haveOrientation bool

	clientsMu sync.Mutex
	clients   map[uuid.UUID]chan wsMessage
}

func newWebServer(log logrus.FieldLogger) *webServer {
	return &webServer{
		log:     log,
		clients: make(map[uuid.UUID]chan wsMessage),
	}
}

func (s *webServer) handleResult(_ mqtt.Client, msg mqtt.Message) {
	var r qibla.Result
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		s.log.WithError(err).Warn("dropping malformed qibla result")
		return
	}
	s.mu.Lock()
	s.result = r
	s.haveResult = true
	s.mu.Unlock()

	s.broadcast(wsMessage{Type: "result", Result: &r})
}

func (s *webServer) handleOrientation(_ mqtt.Client, msg mqtt.Message) {
	var o qibla.Orientation
	if err := json.Unmarshal(msg.Payload(), &o); err != nil {
		s.log.WithError(err).Warn("dropping malformed orientation")
		return
	}
	s.mu.Lock()
	s.orientation = o
	s.haveOrientation = true
	s.mu.Unlock()

	s.broadcast(wsMessage{Type: "orientation", Orientation: &o})
}

func (s *webServer) broadcast(m wsMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for id, ch := range s.clients {
		select {
		case ch <- m:
		default:
			s.log.WithField("client", id).Debug("websocket client lagging, update dropped")
		}
	}
}

func (s *webServer) addClient() (uuid.UUID, chan wsMessage) {
	id := uuid.New()
	ch := make(chan wsMessage, clientBuffer)
	s.clientsMu.Lock()
	s.clients[id] = ch
	s.clientsMu.Unlock()
	return id, ch
}

func (s *webServer) removeClient(id uuid.UUID) {
	s.clientsMu.Lock()
	delete(s.clients, id)
	s.clientsMu.Unlock()
}

func (s *webServer) handleQiblaAPI(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	r, ok := s.result, s.haveResult
	s.mu.RUnlock()
	s.writeJSON(w, r, ok)
}

func (s *webServer) handleOrientationAPI(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	o, ok := s.orientation, s.haveOrientation
	s.mu.RUnlock()
	s.writeJSON(w, o, ok)
}

func (s *webServer) writeJSON(w http.ResponseWriter, v interface{}, ok bool) {
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("json encode error")
	}
}

// handleCompassWS streams results and orientations to the browser. The
// current result is sent first so the dial can be drawn immediately.
func (s *webServer) handleCompassWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade error")
		return
	}
	defer conn.Close()

	id, ch := s.addClient()
	defer s.removeClient(id)
	log := s.log.WithField("client", id)
	log.Debug("websocket client connected")

	s.mu.RLock()
	current, ok := s.result, s.haveResult
	s.mu.RUnlock()
	if ok {
		if err := conn.WriteJSON(wsMessage{Type: "result", Result: &current}); err != nil {
			log.WithError(err).Debug("websocket write error")
			return
		}
	}

	// reader goroutine only notices the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case m := <-ch:
			if err := conn.WriteJSON(m); err != nil {
				log.WithError(err).Debug("websocket write error")
				return
			}
		case <-closed:
			log.Debug("websocket client disconnected")
			return
		}
	}
}

func (s *webServer) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/qibla", s.handleQiblaAPI)
	mux.HandleFunc("/api/orientation", s.handleOrientationAPI)
	mux.HandleFunc("/ws/compass", s.handleCompassWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb serves the latest qibla result and orientation over HTTP and a
// websocket, fed from MQTT.
func RunWeb() error {
	cfg := config.Get()

	log, err := logger.New(cfg, "web")
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	srv := newWebServer(log)
	if err := subscribe(client, cfg.TopicQibla, srv.handleResult, log); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicOrientation, srv.handleOrientation, log); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.WithField("addr", addr).Info("web server listening")
	return http.ListenAndServe(addr, srv.routes("web"))
}
