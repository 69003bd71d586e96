package ptp

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PeerSource returns the current set of peer addresses a node should
// address Announce/Sync/Follow_Up traffic to. Implementations are
// free to back this with a static list or a live membership view; the
// loop calls it once per Announce/Sync tick so membership changes
// take effect without restarting the node.
type PeerSource func() []string

// slaveExchange tracks the one in-flight Sync/Follow_Up/Delay_Req/
// Delay_Resp exchange a Slave node runs at a time: t2 (this node's
// local receive time of Sync) is produced by the event-port reader
// and consumed by the general-port reader once Delay_Resp arrives.
type slaveExchange struct {
	mu sync.Mutex
	t2 Timestamp
}

func (s *slaveExchange) set(t2 Timestamp) {
	s.mu.Lock()
	s.t2 = t2
	s.mu.Unlock()
}

func (s *slaveExchange) get() Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t2
}

// RunNode drives a Node's full BMCA + sync loop over a live
// UDPTransport until ctx is cancelled or a socket read fails
// permanently: it dispatches inbound Announce/Sync/Follow_Up/
// Delay_Req/Delay_Resp traffic into the Node, and emits periodic
// Announce (always), Sync+Follow_Up (while Master), and Delay_Req
// (while Slave).
func RunNode(ctx context.Context, node *Node, transport *UDPTransport, peers PeerSource, grandmasterIdentity uint64, log zerolog.Logger) error {
	log = log.With().Str("component", "ptp_loop").Logger()
	exchange := &slaveExchange{}

	errCh := make(chan error, 2)
	go func() { errCh <- runEventReader(ctx, node, transport, exchange, log) }()
	go func() { errCh <- runGeneralReader(ctx, node, transport, exchange, log) }()

	announceTicker := time.NewTicker(DefaultAnnounceInterval)
	defer announceTicker.Stop()
	syncTicker := time.NewTicker(DefaultSyncInterval)
	defer syncTicker.Stop()
	delayTicker := time.NewTicker(DefaultDelayReqInterval)
	defer delayTicker.Stop()

	settleAt := time.Now().Add(DefaultAnnounceInterval * AnnounceTimeoutIntervals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err

		case now := <-announceTicker.C:
			node.CheckAnnounceTimeout(DefaultAnnounceInterval)
			if node.Role() == RoleMasterCandidate && now.After(settleAt) {
				node.PromoteToMaster()
				log.Info().Msg("ptp: settled with no stronger announce, promoting to master")
			}
			sendAnnounce(node, transport, peers(), grandmasterIdentity, log)

		case <-syncTicker.C:
			if node.Role() == RoleMaster {
				sendSync(node, transport, peers(), log)
			}

		case <-delayTicker.C:
			if node.Role() == RoleSlave {
				sendDelayReq(node, transport, log)
			}
		}
	}
}

func sendAnnounce(node *Node, transport *UDPTransport, peers []string, grandmasterIdentity uint64, log zerolog.Logger) {
	h, body := node.BuildAnnounce(grandmasterIdentity, TimestampFromTime(time.Now()))
	frame := append(h.Marshal(), body.Marshal()...)
	for _, addr := range peers {
		if err := transport.SendGeneral(addr, frame); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("ptp: announce send failed")
		}
	}
}

func sendSync(node *Node, transport *UDPTransport, peers []string, log zerolog.Logger) {
	t1 := TimestampFromTime(time.Now())
	syncHdr, syncBody := node.BeginSync(t1)
	syncFrame := append(syncHdr.Marshal(), syncBody.Marshal()...)

	followHdr := syncHdr
	followHdr.MessageType = MessageFollowUp
	followHdr.Flags = 0
	followFrame := append(followHdr.Marshal(), (TimestampBody{OriginTimestamp: t1}).Marshal()...)

	for _, addr := range peers {
		if err := transport.SendEvent(addr, syncFrame); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("ptp: sync send failed")
			continue
		}
		if err := transport.SendGeneral(addr, followFrame); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("ptp: follow_up send failed")
		}
	}
}

func sendDelayReq(node *Node, transport *UDPTransport, log zerolog.Logger) {
	master := node.MasterAddr()
	if master == "" {
		return
	}
	h, body := node.BeginDelayReq(TimestampFromTime(time.Now()))
	frame := append(h.Marshal(), body.Marshal()...)
	if err := transport.SendEvent(master, frame); err != nil {
		log.Warn().Err(err).Str("master", master).Msg("ptp: delay_req send failed")
	}
}

// runEventReader handles the event-port traffic a node receives as
// either role: Sync as Slave (recording t2), Delay_Req as Master
// (replying with Delay_Resp carrying t4).
func runEventReader(ctx context.Context, node *Node, transport *UDPTransport, exchange *slaveExchange, log zerolog.Logger) error {
	buf := make([]byte, HeaderLen+TimestampWireLen)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, from, err := transport.ReadEvent(buf)
		if err != nil {
			return err
		}
		h, err := ParseHeader(buf[:n])
		if err != nil {
			log.Warn().Err(err).Msg("ptp: malformed event-port header")
			continue
		}

		switch h.MessageType {
		case MessageSync:
			t2 := TimestampFromTime(time.Now())
			exchange.set(t2)
			node.OnSyncReceived(t2)

		case MessageDelayReq:
			if node.Role() != RoleMaster {
				continue
			}
			t4 := TimestampFromTime(time.Now())
			respHdr := Header{
				MessageType:        MessageDelayResp,
				SourcePortIdentity: h.SourcePortIdentity,
				SequenceID:         h.SequenceID,
			}
			respBody := DelayRespBody{ReceiveTimestamp: t4, RequestingPortIdentity: h.SourcePortIdentity}
			frame := append(respHdr.Marshal(), respBody.Marshal()...)
			if err := transport.SendGeneral(from, frame); err != nil {
				log.Warn().Err(err).Str("peer", from).Msg("ptp: delay_resp send failed")
			}
		}
	}
}

// runGeneralReader handles general-port traffic: Announce (BMCA
// input for any role), Follow_Up and Delay_Resp (Slave only).
func runGeneralReader(ctx context.Context, node *Node, transport *UDPTransport, exchange *slaveExchange, log zerolog.Logger) error {
	buf := make([]byte, HeaderLen+32)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, from, err := transport.ReadGeneral(buf)
		if err != nil {
			return err
		}
		h, err := ParseHeader(buf[:n])
		if err != nil {
			log.Warn().Err(err).Msg("ptp: malformed general-port header")
			continue
		}
		body := buf[HeaderLen:n]

		switch h.MessageType {
		case MessageAnnounce:
			ab, err := ParseAnnounceBody(body)
			if err != nil {
				log.Warn().Err(err).Msg("ptp: malformed announce body")
				continue
			}
			node.HandleAnnounce(Candidate{
				Priority1:     ab.Priority1,
				Priority2:     ab.Priority2,
				ClockIdentity: h.SourcePortIdentity.ClockIdentity,
				FromAddr:      from,
			})

		case MessageFollowUp:
			if node.Role() != RoleSlave {
				continue
			}
			tb, err := ParseTimestampBody(body)
			if err != nil {
				log.Warn().Err(err).Msg("ptp: malformed follow_up body")
				continue
			}
			node.OnFollowUpReceived(tb.OriginTimestamp)

		case MessageDelayResp:
			if node.Role() != RoleSlave {
				continue
			}
			db, err := ParseDelayRespBody(body)
			if err != nil {
				log.Warn().Err(err).Msg("ptp: malformed delay_resp body")
				continue
			}
			if _, accepted := node.OnDelayRespReceived(h.SequenceID, exchange.get(), db.ReceiveTimestamp); accepted {
				log.Debug().
					Int64("offset_ns", node.Clock().OffsetNS()).
					Msg("ptp: measurement accepted")
			}
		}
	}
}
