// Package sdp implements enough of RFC 4566 Session Description
// Protocol parsing and generation to support the RAOP/AirPlay ANNOUNCE
// exchange: the generic key/value line model, plus RAOP-specific
// rtpmap/fmtp/rsaaeskey/aesiv extraction in raop.go.
package sdp

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// SessionDescription holds every SDP line, keyed by its single-letter
// type, in the order encountered. Most types (rtpmap, fmtp, etc.)
// appear as "a" attribute lines and are further parsed by raop.go.
type SessionDescription map[string][]string

// Values returns every line for a given key, in file order.
func (sd SessionDescription) Values(key string) []string {
	return sd[key]
}

// Value returns the first line for a given key, or "" if absent.
func (sd SessionDescription) Value(key string) string {
	values := sd[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// MediaDescription is a parsed "m=" line:
// m=<media> <port>[/<number of ports>] <proto> <fmt> ...
type MediaDescription struct {
	MediaType   string
	Port        int
	PortNumbers int
	Proto       string
	Formats     []string
}

func (m MediaDescription) String() string {
	ports := strconv.Itoa(m.Port)
	if m.PortNumbers > 0 {
		ports += "/" + strconv.Itoa(m.PortNumbers)
	}
	return fmt.Sprintf("m=%s %s %s %s", m.MediaType, ports, m.Proto, strings.Join(m.Formats, " "))
}

// MediaDescription finds the first "m=" line for the given media type
// ("audio").
func (sd SessionDescription) MediaDescription(mediaType string) (MediaDescription, error) {
	var raw string
	for _, v := range sd.Values("m") {
		ind := strings.Index(v, " ")
		if ind < 1 {
			continue
		}
		if v[:ind] == mediaType {
			raw = v
			break
		}
	}
	if raw == "" {
		return MediaDescription{}, fmt.Errorf("sdp: no media description for %q", mediaType)
	}

	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return MediaDescription{}, fmt.Errorf("sdp: malformed media description %q", raw)
	}

	md := MediaDescription{MediaType: fields[0], Proto: fields[2]}
	ports := strings.Split(fields[1], "/")
	md.Port, _ = strconv.Atoi(ports[0])
	if len(ports) > 1 {
		md.PortNumbers, _ = strconv.Atoi(ports[1])
	}
	if len(fields) > 3 {
		md.Formats = fields[3:]
	}
	return md, nil
}

// ConnectionInformation is a parsed "c=" line:
// c=<nettype> <addrtype> <connection-address>
type ConnectionInformation struct {
	NetworkType string
	AddressType string
	IP          net.IP
}

// ConnectionInformation returns the session's "c=" line.
func (sd SessionDescription) ConnectionInformation() (ConnectionInformation, error) {
	v := sd.Value("c")
	if v == "" {
		return ConnectionInformation{}, fmt.Errorf("sdp: no connection information")
	}
	fields := strings.Fields(v)
	if len(fields) < 3 {
		return ConnectionInformation{}, fmt.Errorf("sdp: malformed connection information %q", v)
	}
	ci := ConnectionInformation{NetworkType: fields[0], AddressType: fields[1]}
	addr := strings.SplitN(fields[2], "/", 2)
	ci.IP = net.ParseIP(addr[0])
	return ci, nil
}

// Unmarshal parses raw SDP text into sd, tolerating CRLF and bare LF
// line endings. It does not validate field grammar beyond the generic
// "type=value" shape — callers extract and validate the fields they
// need (see raop.go).
func Unmarshal(data []byte, sd *SessionDescription) error {
	reader := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(reader)
	reader.Reset()
	reader.Write(data)

	m := *sd
	for {
		line, err := nextLine(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if len(line) < 2 {
			continue
		}
		ind := strings.Index(line, "=")
		if ind < 1 {
			return fmt.Errorf("sdp: malformed line %q", line)
		}
		m[line[:ind]] = append(m[line[:ind]], line[ind+1:])
	}
}

func nextLine(reader *bytes.Buffer) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return line, err
	}
	n := len(line)
	if n >= 2 && line[n-2] == '\r' {
		return line[:n-2], nil
	}
	return line[:n-1], nil
}
