package mdns

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/rs/zerolog"
)

// Advertiser publishes one or more AirPlay/RAOP TXT records over
// mDNS/DNS-SD using a pure-Go responder, so receivers need no system
// daemon to be discoverable.
type Advertiser struct {
	log       zerolog.Logger
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// NewAdvertiser starts a DNS-SD responder. Call Close to stop it.
func NewAdvertiser(log zerolog.Logger) (*Advertiser, error) {
	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mdns: new responder: %w", err)
	}
	return &Advertiser{
		log:       log.With().Str("component", "mdns_advertiser").Logger(),
		responder: responder,
	}, nil
}

// AdvertiseRAOP publishes name (conventionally "<MAC_HEX>@<friendly>")
// as a _raop._tcp service on port, with txt as its TXT record.
func (a *Advertiser) AdvertiseRAOP(name string, port int, txt RAOPTxt) error {
	return a.advertise(name, RAOPServiceType, port, txt.ToMap())
}

// AdvertiseAirPlay publishes name as an _airplay._tcp service on port,
// with txt as its TXT record.
func (a *Advertiser) AdvertiseAirPlay(name string, port int, txt AirPlayTxt) error {
	return a.advertise(name, AirPlayServiceType, port, txt.ToMap())
}

func (a *Advertiser) advertise(name, serviceType string, port int, text map[string]string) error {
	cfg := dnssd.Config{
		Name: name,
		Type: serviceType,
		Port: port,
		Text: text,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("mdns: new service %s/%s: %w", serviceType, name, err)
	}
	if _, err := a.responder.Add(service); err != nil {
		return fmt.Errorf("mdns: add service %s/%s: %w", serviceType, name, err)
	}
	a.log.Info().Str("service", serviceType).Str("name", name).Int("port", port).Msg("advertising service")
	return nil
}

// Start runs the responder loop until Close is called. It blocks, so
// callers run it in its own goroutine.
func (a *Advertiser) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	err := a.responder.Respond(ctx)
	if err != nil && ctx.Err() != nil {
		return nil // stopped via Close/parent cancellation
	}
	return err
}

// Close stops the responder loop started by Start.
func (a *Advertiser) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}
