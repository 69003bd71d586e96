// Command raopx-receiver is a thin CLI wrapper around the raopx.Receiver
// AirPlay 1 (RAOP) receiver: it listens for one RTSP control connection
// at a time and reassembles the incoming audio stream.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raopx/raopx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	var (
		name        = pflag.StringP("name", "n", "raopx", "Friendly device name advertised over mDNS")
		listenAddr  = pflag.StringP("listen", "l", ":5000", "RTSP control listen address")
		metricsAddr = pflag.String("metrics-listen", "", "Address to serve Prometheus metrics on (empty disables)")
		recordTo    = pflag.StringP("record-to", "o", "", "Write received raw PCM audio to this file")
		advertise   = pflag.Bool("advertise", true, "Advertise the service over mDNS/DNS-SD")
		keystoreDir = pflag.String("keystore-dir", "raopx-keystore", "Directory holding this receiver's identity and paired controllers (empty disables AirPlay 2 pairing)")
		setupCode   = pflag.String("setup-code", "3939", "Setup code (PIN) pair-setup verifies controllers against")
		ptpListen   = pflag.String("ptp-listen", "", "Bind address for the PTP event/general UDP ports (empty disables multi-room clock sync)")
		ptpPeers    = pflag.StringSlice("ptp-peer", nil, "Address of another group member to exchange PTP traffic with (repeatable)")
		help        = pflag.BoolP("help", "h", false, "Display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Run an AirPlay 1 (RAOP) audio receiver.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	raopx.InitLogging()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := raopx.DefaultReceiverConfig(*name, *listenAddr)
	cfg.Advertise = *advertise
	cfg.RecordTo = *recordTo
	cfg.KeystoreDir = *keystoreDir
	cfg.SetupCode = *setupCode
	cfg.PTPListen = *ptpListen
	cfg.PTPPeers = *ptpPeers

	r, err := raopx.NewReceiver(cfg, prometheus.DefaultRegisterer, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create receiver")
	}
	defer r.Close()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	if err := r.Run(ctx); err != nil {
		log.Error().Err(err).Msg("raopx-receiver failed")
		os.Exit(1)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
