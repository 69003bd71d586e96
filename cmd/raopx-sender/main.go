// Command raopx-sender is a thin CLI wrapper around the raopx.Client
// AirPlay 1 (RAOP) sender: connect to a receiver by name or address,
// set the volume, and play one raw PCM file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/raopx/raopx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	var (
		name        = pflag.StringP("name", "n", "", "Receiver name to resolve via mDNS, or a host[:port] address")
		volume      = pflag.Float64P("volume", "V", 1.0, "Linear volume, 0.0-1.0")
		file        = pflag.StringP("file", "f", "", "Path to a raw 16-bit/44.1kHz/stereo PCM file to play")
		timeout     = pflag.DurationP("timeout", "t", 5*time.Second, "Connection timeout")
		ap2         = pflag.Bool("ap2", false, "Negotiate AirPlay 2 pairing (pair-setup/pair-verify) before streaming")
		setupCode   = pflag.String("setup-code", "3939", "Setup code (PIN) to pair with, used only on first pairing with a receiver")
		keystoreDir = pflag.String("keystore-dir", "raopx-keystore", "Directory holding this sender's identity and paired receivers")
		help        = pflag.BoolP("help", "h", false, "Display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Play a raw PCM file to an AirPlay 1 (RAOP) receiver.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *name == "" || *file == "" {
		pflag.Usage()
		os.Exit(1)
	}

	raopx.InitLogging()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *name, *volume, *file, *timeout, *ap2, *setupCode, *keystoreDir); err != nil {
		if raopx.Is(err, raopx.KindConnection) {
			log.Error().Err(err).Msg("connection failed")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("raopx-sender failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, volume float64, file string, timeout time.Duration, ap2 bool, setupCode, keystoreDir string) error {
	log.Info().Str("target", name).Msg("connecting")
	c, err := raopx.ConnectByName(ctx, name, timeout, nil, log.Logger)
	if err != nil {
		return err
	}
	defer c.Stop()

	if ap2 {
		if err := c.EnablePairing(keystoreDir); err != nil {
			return err
		}
		log.Info().Msg("pairing")
		if err := c.PairSetup(setupCode); err != nil {
			return err
		}
		if err := c.PairVerify(); err != nil {
			return err
		}
	}

	if err := c.SetVolume(volume); err != nil {
		return err
	}

	log.Info().Str("file", file).Msg("playing")
	return c.PlayFile(file)
}
