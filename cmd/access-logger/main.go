// Command access-logger records access periods started and stopped with
// buttons, logging a temperature/humidity reading every second while an
// access is in progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/access-logger/internal/access"
	"github.com/sweeney/access-logger/internal/accesslog"
	"github.com/sweeney/access-logger/internal/config"
	"github.com/sweeney/access-logger/internal/gpio"
	"github.com/sweeney/access-logger/internal/mqtt"
	"github.com/sweeney/access-logger/internal/sensor"
	"github.com/sweeney/access-logger/internal/status"
	"github.com/sweeney/access-logger/internal/web"
)

func main() {
	configPath := registerFlags(flag.CommandLine)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: load config: %v", err)
		}
	}
	if err := applyOverrides(cfg, flag.CommandLine); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if cfg.SampleInterval <= 0 {
		log.Fatalf("fatal: sample interval must be positive")
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// registerFlags defines the command line on fs and returns the config path.
func registerFlags(fs *flag.FlagSet) *string {
	configPath := fs.String("config", "", "YAML config file (built-in defaults if empty)")
	fs.String("log", "", "Access log path")
	fs.String("format", "", "Access log format: compact or timestamped")
	fs.Duration("sample", 0, "Sampling interval")
	fs.Duration("heartbeat", 0, "Heartbeat interval (0 to disable)")
	fs.String("broker", "", "MQTT broker address (enables MQTT)")
	fs.String("sensor", "", "Sensor source: simulated or mqtt")
	fs.String("http", "", "HTTP status address (empty to disable)")
	return configPath
}

// applyOverrides copies flags given on the command line over cfg, so they
// win over the config file.
func applyOverrides(cfg *config.Config, fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "log":
			cfg.Log.Path = v.(string)
		case "format":
			format, ferr := accesslog.ParseFormat(v.(string))
			if ferr != nil {
				err = ferr
				return
			}
			cfg.Log.Format = format
		case "sample":
			cfg.SampleInterval = v.(time.Duration)
			cfg.SampleMs = int(cfg.SampleInterval.Milliseconds())
		case "heartbeat":
			cfg.HeartbeatInterval = v.(time.Duration)
			cfg.HeartbeatMs = int(cfg.HeartbeatInterval.Milliseconds())
		case "broker":
			cfg.MQTT.Broker = v.(string)
			cfg.MQTT.Enabled = cfg.MQTT.Broker != ""
		case "sensor":
			cfg.Sensor.Source = v.(string)
		case "http":
			cfg.HTTP.Addr = v.(string)
		}
	})
	return err
}

func run(cfg *config.Config) error {
	// Open the log first: without it there is nothing to record into.
	store, err := accesslog.Open(cfg.Log.Path, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close access log: %v", err)
		}
	}()

	buttons, err := gpio.NewRealButtons(cfg.Buttons.Chip, cfg.Buttons.Pins(), cfg.Buttons.Debounce)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer buttons.Close()

	sampler, closeSampler, err := newSampler(cfg)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer closeSampler()

	var publisher mqtt.Publisher = discard{}
	var mqttStatus mqtt.ConnectionStatus = discard{}
	brokerName := ""
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			defer p.Close()
			publisher, mqttStatus = p, p
			brokerName = cfg.MQTT.Broker
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		SampleMs:    cfg.SampleInterval.Milliseconds(),
		DebounceMs:  cfg.Buttons.Debounce.Milliseconds(),
		HeartbeatMs: cfg.HeartbeatInterval.Milliseconds(),
		Broker:      brokerName,
		HTTPPort:    cfg.HTTP.Addr,
		LogPath:     store.Path(),
		LogFormat:   string(store.Format()),
		Sensor:      cfg.Sensor.Source,
	})
	tracker.SetMQTTConnected(mqttStatus.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, store.Path())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: log=%s format=%s sample=%v sensor=%s heartbeat=%v",
		store.Path(), store.Format(), cfg.SampleInterval, cfg.Sensor.Source, cfg.HeartbeatInterval)

	ticker := time.NewTicker(cfg.SampleInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		store:      store,
		buttons:    buttons.Events(),
		sampler:    sampler,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  cfg.HeartbeatInterval,
	}, time.Now, ticker.C, sigCh)
}

func newSampler(cfg *config.Config) (sensor.Sampler, func(), error) {
	switch cfg.Sensor.Source {
	case config.SensorMQTT:
		s, err := sensor.NewMQTTSampler(cfg.MQTT.Broker, cfg.MQTT.ClientID+"-sensor", cfg.Sensor.Topic)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		seed := cfg.Sensor.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return sensor.NewSimulated(seed), func() {}, nil
	}
}

// recordLog is the part of the access log store the loop writes to.
type recordLog interface {
	Append(rec access.Record) error
	Lines() int
}

type loopDeps struct {
	store      recordLog
	buttons    <-chan gpio.Press
	sampler    sensor.Sampler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
}

// runLoop owns the access machine. Button presses, sampling ticks and
// signals are handled one at a time on this goroutine.
func runLoop(d loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	machine := access.NewMachine()
	hb := access.NewHeartbeat(d.heartbeat, startTime)

	// emit writes rec to the log, then mirrors it to MQTT. Only the log
	// write can fail the run.
	emit := func(rec access.Record) error {
		if err := d.store.Append(rec); err != nil {
			return err
		}
		event := mqtt.Event{Record: rec, Tier: machine.CurrentTier(), Elapsed: machine.Elapsed()}
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
		return nil
	}

	publishSystem := func(event, reason string, at time.Time) {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		d.tracker.Update(machine, d.store.Lines())
		snap := d.tracker.Snapshot()
		se := mqtt.SystemEvent{
			Timestamp:  at,
			Event:      event,
			Reason:     reason,
			Retained:   event != "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, event, reason),
		}
		if err := d.publisher.PublishSystem(se); err != nil {
			log.Printf("failed to publish %s event: %v", event, err)
		} else if event != "HEARTBEAT" {
			log.Printf("published %s event", event)
		}
	}

	// shutdown closes any access in progress so the log ends on a stop line.
	shutdown := func(reason string) error {
		t := now()
		var err error
		if rec, ok := machine.Stop(t); ok {
			log.Printf("event: %s (%ds, shutdown)", rec.Kind, rec.Duration)
			err = emit(rec)
		}
		publishSystem("SHUTDOWN", reason, t)
		return err
	}

	// abort ends the run after a failed log write.
	abort := func(err error) error {
		log.Printf("access log write failed, stopping: %v", err)
		publishSystem("SHUTDOWN", "STORAGE_ERROR", now())
		return err
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return shutdown(signalName(s))

		case p, ok := <-d.buttons:
			if !ok {
				d.buttons = nil
				continue
			}
			at := p.Time
			if at.IsZero() {
				at = now()
			}

			switch p.Button {
			case gpio.ButtonA:
				rec, ok := machine.Start(at)
				if !ok {
					log.Printf("button A ignored: access already active (%ds)", machine.Elapsed())
					break
				}
				log.Printf("event: %s", rec.Kind)
				if err := emit(rec); err != nil {
					return abort(err)
				}
			case gpio.ButtonB:
				rec, ok := machine.Stop(at)
				if !ok {
					log.Printf("button B ignored: no access active")
					break
				}
				log.Printf("event: %s (%ds)", rec.Kind, rec.Duration)
				if err := emit(rec); err != nil {
					return abort(err)
				}
			case gpio.ButtonC:
				log.Printf("button C pressed, finishing")
				return shutdown("BUTTON_C")
			}
			d.tracker.Update(machine, d.store.Lines())

		case <-tick:
			t := now()

			if hbData, ok := hb.Check(t); ok {
				log.Printf("heartbeat: uptime=%v active=%v", hbData.Uptime, machine.Active())
				publishSystem("HEARTBEAT", "", hbData.Timestamp)
			}

			r, fresh := d.sampler.Sample()
			if !fresh {
				continue
			}
			d.tracker.SetReading(r, t)

			if rec, ok := machine.Tick(r, t); ok {
				if err := emit(rec); err != nil {
					return abort(err)
				}
			}
			d.tracker.Update(machine, d.store.Lines())
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// discard stands in for MQTT when no broker is configured or reachable.
type discard struct{}

func (discard) Publish(mqtt.Event) error             { return nil }
func (discard) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discard) Close() error                         { return nil }
func (discard) IsConnected() bool                    { return false }
