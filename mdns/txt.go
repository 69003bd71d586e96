// Package mdns defines the TXT-record schemas AirPlay devices
// advertise and consume over mDNS/DNS-SD, and an advertiser that
// publishes them. Service browsing itself is out of scope; only the
// record shape and an outbound announcer live here.
package mdns

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RAOPServiceType is the legacy AirPlay 1 (RAOP) DNS-SD service type.
// The instance name is conventionally "<MAC_HEX>@<friendly>".
const RAOPServiceType = "_raop._tcp"

// AirPlayServiceType is the AirPlay 2 DNS-SD service type.
const AirPlayServiceType = "_airplay._tcp"

// Features is the 64-bit AirPlay feature bitmap, carried over the wire
// as two 32-bit halves.
type Features uint64

// String renders the bitmap the way both service types' "features"
// TXT field expects: "0x<lo32>,0x<hi32>".
func (f Features) String() string {
	lo := uint32(f)
	hi := uint32(f >> 32)
	return fmt.Sprintf("0x%X,0x%X", lo, hi)
}

// ParseFeatures parses the "0x<lo32>,0x<hi32>" form back into a
// Features value.
func ParseFeatures(s string) (Features, error) {
	halves := strings.SplitN(s, ",", 2)
	if len(halves) != 2 {
		return 0, fmt.Errorf("mdns: malformed features field %q", s)
	}
	lo, err := strconv.ParseUint(strings.TrimPrefix(halves[0], "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("mdns: malformed features low half %q: %w", halves[0], err)
	}
	hi, err := strconv.ParseUint(strings.TrimPrefix(halves[1], "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("mdns: malformed features high half %q: %w", halves[1], err)
	}
	return Features(hi<<32 | lo), nil
}

// CommonTxt is the set of TXT fields shared by both service types.
type CommonTxt struct {
	DeviceID     string `txt:"deviceid" mapstructure:"deviceid"`
	Model        string `txt:"model" mapstructure:"model"`
	Manufacturer string `txt:"manufacturer" mapstructure:"manufacturer"`
	SerialNumber string `txt:"serialNumber" mapstructure:"serialNumber"`
	FirmwareVer  string `txt:"fv" mapstructure:"fv"`
	SourceVers   string `txt:"srcvers" mapstructure:"srcvers"`
	ProtoVers    string `txt:"protovers" mapstructure:"protovers"`
	Features     string `txt:"features" mapstructure:"features"`
	Flags        string `txt:"flags" mapstructure:"flags"`
	PublicKey    string `txt:"pk" mapstructure:"pk"`
	PairingID    string `txt:"pi" mapstructure:"pi"`
	ACL          string `txt:"acl" mapstructure:"acl"`
	VoiceVers    string `txt:"vv" mapstructure:"vv"`
}

// AirPlayTxt is the full _airplay._tcp.local. TXT record.
type AirPlayTxt struct {
	CommonTxt `mapstructure:",squash"`
}

// RAOPCodec enumerates the "cn" field's codec ids.
type RAOPCodec int

const (
	RAOPCodecPCM RAOPCodec = iota
	RAOPCodecALAC
	RAOPCodecAACLC
	RAOPCodecAACELD
)

// RAOPEncryption enumerates the "et" field's encryption ids.
type RAOPEncryption int

const (
	RAOPEncryptionNone        RAOPEncryption = 0
	RAOPEncryptionRSA         RAOPEncryption = 1
	RAOPEncryptionFairPlay    RAOPEncryption = 3
	RAOPEncryptionMFiSAP      RAOPEncryption = 4
	RAOPEncryptionFairPlaySAP RAOPEncryption = 5
)

// RAOPMetadata enumerates the "md" field's metadata-type ids.
type RAOPMetadata int

const (
	RAOPMetadataText RAOPMetadata = iota
	RAOPMetadataArtwork
	RAOPMetadataProgress
)

// RAOPTxt is the full legacy _raop._tcp.local. TXT record.
type RAOPTxt struct {
	CommonTxt `mapstructure:",squash"`

	TxtVers        string `txt:"txtvers" mapstructure:"txtvers"`
	Channels       string `txt:"ch" mapstructure:"ch"`
	Codecs         string `txt:"cn" mapstructure:"cn"`
	Encryptions    string `txt:"et" mapstructure:"et"`
	MetadataTypes  string `txt:"md" mapstructure:"md"`
	Transport      string `txt:"tp" mapstructure:"tp"`
	SampleRate     string `txt:"sr" mapstructure:"sr"`
	SampleSize     string `txt:"ss" mapstructure:"ss"`
	PasswordSet    string `txt:"pw" mapstructure:"pw"`
	AudioModes     string `txt:"am" mapstructure:"am"`
	VersionNumber  string `txt:"vn" mapstructure:"vn"`
	VersionString  string `txt:"vs" mapstructure:"vs"`
	SampleFormat   string `txt:"sf" mapstructure:"sf"`
	FeatureFlagsFT string `txt:"ft" mapstructure:"ft"`
}

// ToMap renders r as the map[string]string DNS-SD libraries expect as
// a TXT record, skipping empty fields.
func (r RAOPTxt) ToMap() map[string]string {
	out := commonToMap(r.CommonTxt)
	add := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	add("txtvers", r.TxtVers)
	add("ch", r.Channels)
	add("cn", r.Codecs)
	add("et", r.Encryptions)
	add("md", r.MetadataTypes)
	add("tp", r.Transport)
	add("sr", r.SampleRate)
	add("ss", r.SampleSize)
	add("pw", r.PasswordSet)
	add("am", r.AudioModes)
	add("vn", r.VersionNumber)
	add("vs", r.VersionString)
	add("sf", r.SampleFormat)
	add("ft", r.FeatureFlagsFT)
	return out
}

// ToMap renders a as the map[string]string DNS-SD libraries expect as
// a TXT record, skipping empty fields.
func (a AirPlayTxt) ToMap() map[string]string {
	return commonToMap(a.CommonTxt)
}

func commonToMap(c CommonTxt) map[string]string {
	out := map[string]string{}
	add := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	add("deviceid", c.DeviceID)
	add("model", c.Model)
	add("manufacturer", c.Manufacturer)
	add("serialNumber", c.SerialNumber)
	add("fv", c.FirmwareVer)
	add("srcvers", c.SourceVers)
	add("protovers", c.ProtoVers)
	add("features", c.Features)
	add("flags", c.Flags)
	add("pk", c.PublicKey)
	add("pi", c.PairingID)
	add("acl", c.ACL)
	add("vv", c.VoiceVers)
	return out
}

// DecodeRAOPTxt decodes a raw TXT record (as returned by a browsing
// library) into a RAOPTxt.
func DecodeRAOPTxt(raw map[string]string) (RAOPTxt, error) {
	var out RAOPTxt
	if err := decodeTxt(raw, &out); err != nil {
		return RAOPTxt{}, err
	}
	return out, nil
}

// DecodeAirPlayTxt decodes a raw TXT record into an AirPlayTxt.
func DecodeAirPlayTxt(raw map[string]string) (AirPlayTxt, error) {
	var out AirPlayTxt
	if err := decodeTxt(raw, &out); err != nil {
		return AirPlayTxt{}, err
	}
	return out, nil
}

func decodeTxt(raw map[string]string, result interface{}) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
