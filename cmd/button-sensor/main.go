// Command button-sensor debounces GPIO push buttons and publishes their edges to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/metrics"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

var version = "dev"

// options holds the parsed command line. set records which flags were given
// explicitly so they can override the config file and environment.
type options struct {
	configPath string
	poll       time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	chip       string
	printState bool
	verbose    bool
	version    bool
	set        map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Path to YAML config file")
	fs.DurationVar(&o.poll, "poll", 0, "GPIO polling interval (overrides config)")
	fs.StringVar(&o.broker, "broker", "", "MQTT broker address (overrides config)")
	fs.DurationVar(&o.heartbeat, "heartbeat", 0, "Heartbeat interval, 0 to disable (overrides config)")
	fs.StringVar(&o.httpAddr, "http", "", "HTTP status address, empty to disable (overrides config)")
	fs.StringVar(&o.chip, "chip", "", "GPIO chip name (overrides config)")
	fs.BoolVar(&o.printState, "print-state", false, "Print current input levels and exit")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	fs.BoolVar(&o.version, "V", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig builds the effective configuration: defaults, then the file,
// then the environment, then explicitly set flags.
func loadConfig(o options) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if o.set["poll"] {
		cfg.Poll = o.poll
	}
	if o.set["broker"] {
		cfg.Broker = o.broker
	}
	if o.set["heartbeat"] {
		cfg.Heartbeat = o.heartbeat
	}
	if o.set["http"] {
		cfg.HTTPAddr = o.httpAddr
	}
	if o.set["chip"] {
		cfg.Chip = o.chip
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if o.version {
		fmt.Println(version)
		return
	}

	lvl := log.LvlInfo
	if o.verbose {
		lvl = log.LvlDebug
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StdoutHandler))

	cfg, err := loadConfig(o)
	if err != nil {
		log.Crit("load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, o.printState); err != nil {
		log.Crit("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, printState bool) error {
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Lines())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		values, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		return printLevels(os.Stdout, cfg.Inputs, values)
	}

	channels, err := cfg.Channels()
	if err != nil {
		return err
	}
	startTime := time.Now()
	detector, err := logic.NewDetector(channels, startTime)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
	}, log.New("pkg", "mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		Chip:        cfg.Chip,
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		TopicPrefix: cfg.TopicPrefix,
		HTTPAddr:    cfg.HTTPAddr,
	})
	tracker.Update(detector.Channels(), detector.IsBaselined())
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		m.PublishError("system")
		log.Warn("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, reg, log.New("pkg", "web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Info("started",
		"poll", cfg.Poll,
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat,
		"inputs", len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		log.Debug("input",
			"name", in.Name,
			"line", in.Line,
			"width", in.Width,
			"mode", in.Mode,
			"initial", in.Initial,
			"latency", time.Duration(in.Width)*cfg.Poll)
	}

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		reader:     reader,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		detector:   detector,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
		log:        log.Root(),
	}, ticker.C, sigCh)
}

// loop carries the collaborators of the polling loop.
type loop struct {
	reader     gpio.Reader
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	detector   *logic.Detector
	heartbeat  time.Duration
	now        func() time.Time
	log        log.Logger
}

func runLoop(l loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.log.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: l.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshConnection()
				snap := l.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				l.metrics.PublishError("system")
				l.log.Warn("failed to publish shutdown event", "err", err)
			} else {
				l.log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			l.poll(l.now())
		}
	}
}

// poll runs one sample through the detector. Read and publish failures are
// logged and counted, never fatal.
func (l loop) poll(t time.Time) {
	values, err := l.reader.Read()
	if err != nil {
		l.metrics.ReadError()
		l.log.Warn("gpio read error", "err", err)
		return
	}
	l.metrics.Sample()

	events, err := l.detector.Process(logic.Input{Values: values, Time: t})
	if err != nil {
		l.log.Error("process sample", "err", err)
		return
	}

	for _, event := range events {
		l.log.Info("edge", "input", event.Input, "edge", event.Edge, "state", event.State)
		l.metrics.Edge(event)
		if err := l.publisher.Publish(event); err != nil {
			l.metrics.PublishError("event")
			l.log.Warn("publish error", "input", event.Input, "err", err)
		}
	}

	channels := l.detector.Channels()
	l.metrics.Observe(channels)
	if l.tracker != nil {
		l.tracker.Update(channels, l.detector.IsBaselined())
		l.refreshConnection()
	}

	hb := l.detector.CheckHeartbeat(t, l.heartbeat)
	if hb == nil {
		return
	}
	l.log.Info("heartbeat", "uptime", hb.Uptime, "counts", formatCounts(hb.Counts))

	hbEvent := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		snap := l.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		l.metrics.PublishError("system")
		l.log.Warn("heartbeat publish error", "err", err)
	}
}

func (l loop) refreshConnection() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// formatCounts renders counts as name=rising/falling, sorted by name.
func formatCounts(counts map[string]logic.EdgeCounts) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		c := counts[name]
		parts[i] = fmt.Sprintf("%s=%d/%d", name, c.Rising, c.Falling)
	}
	return strings.Join(parts, " ")
}

// printLevels writes one "name: HIGH|LOW" line per input.
func printLevels(w io.Writer, inputs []config.InputConfig, values []bool) error {
	if len(values) != len(inputs) {
		return fmt.Errorf("read %d values for %d inputs", len(values), len(inputs))
	}
	for i, in := range inputs {
		state := logic.StateLow
		if values[i] {
			state = logic.StateHigh
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", in.Name, state); err != nil {
			return err
		}
	}
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
