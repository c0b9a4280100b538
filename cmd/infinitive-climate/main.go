package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"infinitive-climate/entity"
	"infinitive-climate/infinitive"
	"infinitive-climate/internal/config"
	"infinitive-climate/internal/events"
	"infinitive-climate/internal/mqtt"
	"infinitive-climate/internal/poller"
	"infinitive-climate/internal/webserver"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml, toml or json)")
	doDebugLog := flag.Bool("debug", false, "enable debug log level")

	flag.Parse()

	loglevel := log.InfoLevel
	if doDebugLog != nil && *doDebugLog {
		loglevel = log.DebugLevel
	}
	log.SetLevel(loglevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("invalid configuration: %s\n", err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	device := infinitive.New(cfg.Host, cfg.Port, cfg.TempUnits, infinitive.WithZone(cfg.Zone))
	ent := entity.New(device, cfg.Name, cfg.MinSpread, cfg.UniqueID(), cfg.TempUnits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ent.Refresh(ctx); err != nil {
		log.Warnf("initial refresh failed, will retry: %s", err)
	}

	dispatcher := events.NewDispatcher()
	wsCache := events.NewCache(dispatcher)
	poll := poller.New(ent, cfg.PollInterval, wsCache)

	if cfg.MQTT.URL != "" {
		cl, err := mqtt.Connect(cfg.MQTT.URL, cfg.MQTT.Password, cfg.MQTT.ClientID)
		if err != nil {
			log.Error("MQTT: ", err)
		} else {
			bridge := mqtt.NewBridge(cl, cfg.MQTT.Topic, ent).AfterCommand(poll.Poll)
			dispatcher.SetPublisher(bridge)
			poll.WithMQTT(events.NewCache(dispatcher), bridge.StateValues)
			if err := bridge.Start(); err != nil {
				log.Error("MQTT: ", err)
			}
			defer cl.Disconnect(250)
		}
	}

	go dispatcher.Run(ctx)
	go poll.Run(ctx)

	var srv *webserver.Server
	if cfg.HTTPPort > 0 {
		srv = webserver.New(ent, wsCache, dispatcher).AfterCommand(poll.Poll)
		go func() {
			if err := srv.Run(cfg.HTTPPort); err != nil {
				log.Fatalf("error starting server: %s", err)
			}
		}()
	}

	waitForShutdown(cancel, srv)
}

func waitForShutdown(cancel context.CancelFunc, srv *webserver.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	if srv == nil {
		return
	}
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced to shutdown: %s", err)
	}
}
