// Package rtsp implements the RTSP/1.0 control protocol RAOP and
// AirPlay 2 negotiate audio sessions over: incremental request/response
// framing, post-pairing HAP encryption, and state-indexed method
// dispatch.
package rtsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Message is a parsed RTSP/1.0 request or response. Exactly one of
// Method or StatusCode is meaningful, selected by IsRequest.
type Message struct {
	IsRequest  bool
	Method     string
	URI        string
	StatusCode int
	Reason     string
	Headers    []Header
	Body       []byte
}

// Header is a single RTSP header line, order-preserving.
type Header struct {
	Name  string
	Value string
}

// Get returns the first header value matching name, case-insensitively.
func (m *Message) Get(name string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Set appends or replaces a header.
func (m *Message) Set(name, value string) {
	for i, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			m.Headers[i].Value = value
			return
		}
	}
	m.Headers = append(m.Headers, Header{Name: name, Value: value})
}

// CSeq parses the CSeq header, or 0 if missing/malformed.
func (m *Message) CSeq() int {
	v, ok := m.Get("CSeq")
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

// NewRequest builds a request message with no body or headers set.
func NewRequest(method, uri string) *Message {
	return &Message{IsRequest: true, Method: method, URI: uri}
}

// NewResponse builds a response message.
func NewResponse(statusCode int, reason string) *Message {
	return &Message{IsRequest: false, StatusCode: statusCode, Reason: reason}
}

// Encode serializes the message to its wire form, setting
// Content-Length from len(Body) if not already present.
func (m *Message) Encode() []byte {
	var buf bytes.Buffer
	if m.IsRequest {
		fmt.Fprintf(&buf, "%s %s RTSP/1.0\r\n", m.Method, m.URI)
	} else {
		fmt.Fprintf(&buf, "RTSP/1.0 %d %s\r\n", m.StatusCode, m.Reason)
	}

	hasContentLength := false
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, "Content-Length") {
			hasContentLength = true
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	if !hasContentLength {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(m.Body))
	}
	buf.WriteString("\r\n")
	buf.Write(m.Body)
	return buf.Bytes()
}

// Decoder incrementally parses RTSP messages fed from a byte stream,
// tolerating Content-Length: 0 and bodies split across reads.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r with line-buffered incremental framing.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// ReadMessage blocks for exactly one complete message. Returns
// io.EOF when the underlying stream closes cleanly between messages.
func (d *Decoder) ReadMessage() (*Message, error) {
	startLine, err := d.readLine()
	if err != nil {
		return nil, err
	}
	for startLine == "" {
		// Tolerate stray blank lines between messages.
		startLine, err = d.readLine()
		if err != nil {
			return nil, err
		}
	}

	msg, err := parseStartLine(startLine)
	if err != nil {
		return nil, err
	}

	for {
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, fmt.Errorf("rtsp: malformed header line %q", line)
		}
		msg.Headers = append(msg.Headers, Header{Name: name, Value: value})
	}

	contentLength := 0
	if v, ok := msg.Get("Content-Length"); ok {
		contentLength, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("rtsp: malformed Content-Length: %w", err)
		}
	}
	if contentLength > 0 {
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return nil, err
		}
		msg.Body = body
	}
	return msg, nil
}

// readLine reads up to and excluding a CRLF or bare LF, tolerating
// both per spec.md §4.4.
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return name, value, true
}

func parseStartLine(line string) (*Message, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("rtsp: malformed start line %q", line)
	}

	if strings.HasPrefix(fields[0], "RTSP/") {
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("rtsp: malformed status code: %w", err)
		}
		reason := ""
		if len(fields) > 2 {
			reason = strings.Join(fields[2:], " ")
		}
		return &Message{IsRequest: false, StatusCode: code, Reason: reason}, nil
	}

	return &Message{IsRequest: true, Method: fields[0], URI: fields[1]}, nil
}
