package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"infinitive-climate/climate"
	"infinitive-climate/entity"
	"infinitive-climate/internal/events"
)

// Climate is the entity surface served over HTTP.
type Climate interface {
	Snapshot() entity.Snapshot
	SetTemperature(ctx context.Context, req climate.TemperatureRequest) error
	SetFanMode(ctx context.Context, fan climate.FanMode) error
	SetHVACMode(ctx context.Context, mode climate.HVACMode) error
	SetPresetMode(ctx context.Context, preset string) error
}

type Server struct {
	climate    Climate
	cache      *events.Cache
	dispatcher *events.Dispatcher

	afterCommand func(ctx context.Context)

	mu  sync.Mutex
	srv *http.Server
}

func New(c Climate, cache *events.Cache, d *events.Dispatcher) *Server {
	return &Server{climate: c, cache: cache, dispatcher: d}
}

// AfterCommand sets fn to run after every successful command, before the
// response snapshot is taken.
func (s *Server) AfterCommand(fn func(ctx context.Context)) *Server {
	s.afterCommand = fn
	return s
}

func (s *Server) commandDone(c *gin.Context) {
	if s.afterCommand != nil {
		s.afterCommand(c.Request.Context())
	}
	c.JSON(http.StatusOK, s.climate.Snapshot())
}

type fanModeArgs struct {
	FanMode string `json:"fan_mode"`
}

type hvacModeArgs struct {
	HVACMode string `json:"hvac_mode"`
}

type presetModeArgs struct {
	PresetMode string `json:"preset_mode"`
}

func handleErrors(c *gin.Context) {
	c.Next()

	if len(c.Errors) > 0 {
		c.JSON(-1, c.Errors) // -1 == not override the current error code
	}
}

// commandError aborts with a status matching err.
func commandError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, climate.ErrInvalidTemperatureRequest):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	_ = c.AbortWithError(status, err)
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handleErrors) // attach error handling middleware

	api := r.Group("/api")

	api.GET("/climate", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.climate.Snapshot())
	})

	api.PUT("/climate/temperature", func(c *gin.Context) {
		var args climate.TemperatureRequest
		if c.Bind(&args) != nil {
			log.Printf("bind failed")
			return
		}
		if err := s.climate.SetTemperature(c.Request.Context(), args); err != nil {
			commandError(c, err)
			return
		}
		s.commandDone(c)
	})

	api.PUT("/climate/fan_mode", func(c *gin.Context) {
		var args fanModeArgs
		if c.Bind(&args) != nil {
			log.Printf("bind failed")
			return
		}
		if err := s.climate.SetFanMode(c.Request.Context(), climate.FanMode(args.FanMode)); err != nil {
			commandError(c, err)
			return
		}
		s.commandDone(c)
	})

	api.PUT("/climate/hvac_mode", func(c *gin.Context) {
		var args hvacModeArgs
		if c.Bind(&args) != nil {
			log.Printf("bind failed")
			return
		}
		if err := s.climate.SetHVACMode(c.Request.Context(), climate.HVACMode(args.HVACMode)); err != nil {
			commandError(c, err)
			return
		}
		s.commandDone(c)
	})

	api.PUT("/climate/preset_mode", func(c *gin.Context) {
		var args presetModeArgs
		if c.Bind(&args) != nil {
			log.Printf("bind failed")
			return
		}
		if err := s.climate.SetPresetMode(c.Request.Context(), args.PresetMode); err != nil {
			commandError(c, err)
			return
		}
		s.commandDone(c)
	})

	api.GET("/ws", func(c *gin.Context) {
		h := websocket.Handler(s.attachListener)
		h.ServeHTTP(c.Writer, c.Request)
	})

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api/climate")
	})

	return r
}

// Run serves until Shutdown is called.
func (s *Server) Run(port int) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: s.Router(),
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	log.Infof("http server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) attachListener(ws *websocket.Conn) {
	listener := events.NewListener()

	defer func() {
		s.dispatcher.Deregister(listener)
		log.Debug("closing websocket")
		err := ws.Close()
		if err != nil {
			log.Warn("error on ws close: ", err.Error())
		}
	}()

	if !s.dispatcher.Register(listener) {
		return
	}

	for source, data := range s.cache.Dump() {
		if _, err := ws.Write(events.SerializeEvent(source, data)); err != nil {
			log.Warnf("error on websocket write: %s", err)
			return
		}
	}

	// wait for events
	for message := range listener.Ch {
		_, err := ws.Write(message)
		if err != nil {
			log.Warnf("error on websocket write: %s", err.Error())
			return
		}
	}
	log.Debug("listener channel closed")
}
