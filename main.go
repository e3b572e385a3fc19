package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/gnss-track/internal/decode"
	"github.com/banshee-data/gnss-track/internal/gnss"
	"github.com/banshee-data/gnss-track/internal/settings"
	"github.com/banshee-data/gnss-track/internal/telemetry"
	"github.com/banshee-data/gnss-track/internal/track"
	"github.com/banshee-data/gnss-track/internal/version"
)

var (
	listen          = flag.String("listen", ":8080", "Listen address")
	dbFile          = flag.String("db", "gnss_settings.db", "Settings database path")
	telemetryUDP    = flag.String("telemetry-udp", "", "Telemetry collector UDP address, e.g. 127.0.0.1:9901")
	telemetrySerial = flag.String("telemetry-serial", "", "Telemetry serial port, e.g. /dev/ttyUSB0")
	numTrackers     = flag.Int("trackers", 12, "Tracker slots per signal type")
	numDecoders     = flag.Int("decoders", 12, "Decoder slots per signal type")
	sat             = flag.Uint("sat", 5, "Simulated satellite ID")
	dopplerL1       = flag.Float64("doppler", 1200, "Simulated L1 Doppler in Hz")
	tickInterval    = flag.Duration("tick", 10*time.Millisecond, "Scheduler tick interval")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}

	log.Printf("gnss-track %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	// Settings: binding + registry, replaying persisted values through the
	// validating setters.
	binding := settings.NewBinding()
	registry := settings.NewRegistry()
	if err := settings.RegisterTracking(registry, binding); err != nil {
		return fmt.Errorf("failed to register tracking settings: %w", err)
	}

	store, err := settings.OpenStore(*dbFile)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer store.Close()
	if err := store.Load(registry.Apply); err != nil {
		return fmt.Errorf("failed to load persisted settings: %w", err)
	}

	// Telemetry sink, if configured.
	var sink track.CorrelationSink
	switch {
	case *telemetryUDP != "":
		udp, err := telemetry.NewUDPSender(*telemetryUDP)
		if err != nil {
			return fmt.Errorf("failed to create UDP telemetry sender: %w", err)
		}
		defer udp.Close()
		sink = udp
	case *telemetrySerial != "":
		sp, err := telemetry.NewSerialSender(*telemetrySerial)
		if err != nil {
			return fmt.Errorf("failed to open telemetry serial port: %w", err)
		}
		defer sp.Close()
		sink = sp
	}

	// Channel architecture: tracker and decoder registries sharing slot
	// indices, fed by the simulated front end.
	l2Doppler := *dopplerL1 * gnss.GPSL2FreqHz / gnss.GPSL1FreqHz
	front := track.NewSimFrontend(l2Doppler, 1000)

	trackers := track.NewRegistry()
	if err := trackers.Register(track.NewL2CMTracker(binding, sink), track.NewPool(*numTrackers)); err != nil {
		return fmt.Errorf("failed to register L2 CM tracker: %w", err)
	}

	decoders := decode.NewRegistry()
	decoders.BitSourceFor = func(idx int, sid gnss.SignalID) decode.BitSource {
		return front.Channel(idx)
	}
	if err := decoders.Register(decode.NewL2CDecoder(), decode.NewPool(*numDecoders)); err != nil {
		return fmt.Errorf("failed to register L2C decoder: %w", err)
	}

	trackers.Freeze()
	decoders.Freeze()

	coordinator := &track.Coordinator{
		Trackers: trackers,
		Decoders: decoders,
		Frontend: front,
		Capable:  func(sat uint16, code gnss.Code) bool { return true },
	}

	// The L1 C/A parent lives in the acquisition pipeline outside this
	// core; the simulation stands one up directly.
	parentSID := gnss.SignalID{Sat: uint16(*sat), Code: gnss.CodeGPSL1CA}
	parent := track.NewActiveChannel(parentSID, nil, track.CommonData{
		CarrierFreq: *dopplerL1,
		CN0:         40,
		Elevation:   45,
	})
	if err := coordinator.Handover(parent, gnss.CodeGPSL2CM, 0); err != nil {
		return fmt.Errorf("L2 CM handover failed: %w", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scheduler: one tick per integration boundary. Ticks are serialised,
	// so no channel is ever updated concurrently.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				trackers.Tick()
				decoders.Process()
			case <-ctx.Done():
				log.Print("scheduler routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := NewServer(trackers, registry, store).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}
