package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

type MonitorServer struct {
	srv     *http.Server
	srvMu   sync.RWMutex
	running *sync.Mutex
}

func NewMonitorServer() *MonitorServer {
	var s MonitorServer
	s.running = &sync.Mutex{}
	s.srv = &http.Server{}
	return &s
}

func (s *MonitorServer) Start() error {
	if !s.running.TryLock() {
		return fmt.Errorf("already running")
	} else {
		s.running.Unlock()
	}
	go func() {
		s.running.Lock()
		newSrv := &http.Server{Addr: fmt.Sprintf(":%d", Config.GetInt("details_port"))}
		s.srvMu.Lock()
		s.srv = newSrv
		s.srvMu.Unlock()
		if err := newSrv.ListenAndServe(); err != http.ErrServerClosed {
			Logger.Warn().Msgf("Problem loading web server: %v", err)
		}
		Logger.Debug().Msg("web server shutdown")
		s.running.Unlock()
	}()
	return nil
}

func (s *MonitorServer) AddHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	http.HandleFunc(path, handler)
}

func (s *MonitorServer) AddRawHandler(path string, handler http.Handler) {
	http.Handle(path, handler)
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting web server")
	if !s.running.TryLock() { // only shutdown if not running
		Logger.Debug().Msg("web server running, shutting it down")
		s.srvMu.RLock()
		srv := s.srv
		s.srvMu.RUnlock()
		if err := srv.Shutdown(context.TODO()); err != nil {
			Logger.Warn().Msgf("Error shutting down web server: %v", err)
		}
	} else {
		s.running.Unlock()
	}
	s.running.Lock() // when the server shuts down it unlocks, so wait for it
	s.running.Unlock()
	if err := s.Start(); err != nil {
		Logger.Warn().Msgf("Error restarting web server: %v", err)
	}
}
