package sdp

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Codec identifies the decoded audio format a RAOP ANNOUNCE selects.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecPCM
	CodecALAC
	CodecAACLC
	CodecAACELD
)

// DetectCodec applies spec's rtpmap heuristics: "AppleLossless" is
// ALAC; "mpeg4-generic"/"MP4A-LATM" combined with "ELD" is AAC-ELD,
// otherwise AAC-LC; "L16" is raw PCM.
func DetectCodec(rtpmapValue string) Codec {
	switch {
	case strings.Contains(rtpmapValue, "AppleLossless"):
		return CodecALAC
	case strings.Contains(rtpmapValue, "mpeg4-generic"), strings.Contains(rtpmapValue, "MP4A-LATM"):
		if strings.Contains(rtpmapValue, "ELD") {
			return CodecAACELD
		}
		return CodecAACLC
	case strings.Contains(rtpmapValue, "L16"):
		return CodecPCM
	default:
		return CodecUnknown
	}
}

// ALACFormat is the decoded ALAC "magic cookie" fmtp parameters:
// a=fmtp:<fmt> <frame_length> <compat_version> <bit_depth> <pb> <mb>
// <kb> <channels> <max_run> <max_frame_bytes> <avg_bit_rate>
// <sample_rate>.
type ALACFormat struct {
	PayloadType      int
	FramesPerPacket  int
	CompatibleVer    int
	BitDepth         int
	Pb               int
	Mb               int
	Kb               int
	Channels         int
	MaxRun           int
	MaxFrameBytes    int
	AvgBitRate       int
	SampleRate       int
}

// ParseFmtpALAC parses an fmtp attribute value, tolerating both the
// 12-field form (payload type prefix + 11 parameters) and the 11-field
// form (parameters only, payload type supplied separately).
func ParseFmtpALAC(value string, payloadTypeHint int) (ALACFormat, error) {
	fields := strings.Fields(value)

	var nums []int
	var payloadType int
	switch len(fields) {
	case 12:
		pt, err := strconv.Atoi(fields[0])
		if err != nil {
			return ALACFormat{}, fmt.Errorf("sdp: malformed fmtp payload type: %w", err)
		}
		payloadType = pt
		fields = fields[1:]
	case 11:
		payloadType = payloadTypeHint
	default:
		return ALACFormat{}, fmt.Errorf("sdp: fmtp expects 11 or 12 fields, got %d", len(fields))
	}

	nums = make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return ALACFormat{}, fmt.Errorf("sdp: malformed fmtp field %q: %w", f, err)
		}
		nums[i] = n
	}

	return ALACFormat{
		PayloadType:     payloadType,
		FramesPerPacket: nums[0],
		CompatibleVer:   nums[1],
		BitDepth:        nums[2],
		Pb:              nums[3],
		Mb:              nums[4],
		Kb:              nums[5],
		Channels:        nums[6],
		MaxRun:          nums[7],
		MaxFrameBytes:   nums[8],
		AvgBitRate:      nums[9],
		SampleRate:      nums[10],
	}, nil
}

// RTPMapEntry is a parsed "a=rtpmap:<fmt> <encoding>/<clock>[/<channels>]" line.
type RTPMapEntry struct {
	PayloadType int
	Encoding    string
}

// ParseRTPMap extracts the payload type and codec string from an
// rtpmap attribute value ("96 AppleLossless").
func ParseRTPMap(value string) (RTPMapEntry, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return RTPMapEntry{}, fmt.Errorf("sdp: malformed rtpmap %q", value)
	}
	pt, err := strconv.Atoi(fields[0])
	if err != nil {
		return RTPMapEntry{}, fmt.Errorf("sdp: malformed rtpmap payload type: %w", err)
	}
	return RTPMapEntry{PayloadType: pt, Encoding: fields[1]}, nil
}

// RAOPAnnounceParams is what a receiver needs out of an ANNOUNCE SDP
// body, beyond the plain SessionDescription.
type RAOPAnnounceParams struct {
	Codec       Codec
	ALAC        ALACFormat
	RSAAESKey   []byte // RSA-OAEP wrapped 16-byte AES key, legacy RAOP only
	AESIV       []byte // 16-byte AES IV, legacy RAOP only
	MinLatency  int
	HasMinLat   bool
}

// ParseRAOPAnnounce extracts codec, ALAC parameters, and the legacy
// RSA-wrapped AES key/IV (when present) from a parsed ANNOUNCE SDP.
func ParseRAOPAnnounce(sd SessionDescription) (RAOPAnnounceParams, error) {
	var params RAOPAnnounceParams

	md, err := sd.MediaDescription("audio")
	if err != nil {
		return params, err
	}

	var payloadTypeHint int
	if len(md.Formats) > 0 {
		payloadTypeHint, _ = strconv.Atoi(md.Formats[0])
	}

	for _, v := range sd.Values("a") {
		switch {
		case strings.HasPrefix(v, "rtpmap:"):
			entry, err := ParseRTPMap(strings.TrimPrefix(v, "rtpmap:"))
			if err != nil {
				return params, err
			}
			params.Codec = DetectCodec(entry.Encoding)
		case strings.HasPrefix(v, "fmtp:"):
			alac, err := ParseFmtpALAC(strings.TrimPrefix(v, "fmtp:"), payloadTypeHint)
			if err == nil {
				params.ALAC = alac
			}
		case strings.HasPrefix(v, "rsaaeskey:"):
			key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, "rsaaeskey:"))
			if err != nil {
				return params, fmt.Errorf("sdp: malformed rsaaeskey: %w", err)
			}
			params.RSAAESKey = key
		case strings.HasPrefix(v, "aesiv:"):
			iv, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, "aesiv:"))
			if err != nil {
				return params, fmt.Errorf("sdp: malformed aesiv: %w", err)
			}
			params.AESIV = iv
		case strings.HasPrefix(v, "min-latency:"):
			n, err := strconv.Atoi(strings.TrimPrefix(v, "min-latency:"))
			if err == nil {
				params.MinLatency = n
				params.HasMinLat = true
			}
		}
	}

	return params, nil
}

// BuildRAOPAnnounce constructs the minimal ALAC ANNOUNCE body per
// spec.md §4.5.
func BuildRAOPAnnounce(sessionID uint64, clientIP, serverIP string, alac ALACFormat) []byte {
	lines := []string{
		"v=0",
		fmt.Sprintf("o=iTunes %d 1 IN IP4 %s", sessionID, clientIP),
		"s=iTunes",
		fmt.Sprintf("c=IN IP4 %s", serverIP),
		"t=0 0",
		fmt.Sprintf("m=audio 0 RTP/AVP %d", alac.PayloadType),
		fmt.Sprintf("a=rtpmap:%d AppleLossless", alac.PayloadType),
		fmt.Sprintf("a=fmtp:%d %d %d %d %d %d %d %d %d %d %d %d",
			alac.PayloadType, alac.FramesPerPacket, alac.CompatibleVer, alac.BitDepth,
			alac.Pb, alac.Mb, alac.Kb, alac.Channels, alac.MaxRun,
			alac.MaxFrameBytes, alac.AvgBitRate, alac.SampleRate),
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}
