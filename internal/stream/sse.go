package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Frame is one Server-Sent Event.
type Frame struct {
	// Name comes from the "event:" field and is empty for default events.
	Name string
	// Data is the payload assembled from all "data:" lines, joined with
	// newlines.
	Data string
}

// Scanner reads Server-Sent Events from an io.Reader.
//
// Frames are delimited by blank lines. Comment lines (":") and unknown
// fields are ignored. A frame still open at EOF is incomplete and dropped. Unlike a browser EventSource, a frame with an event
// name but no data lines is still dispatched so that a bare "event: end"
// terminates the stream.
type Scanner struct {
	reader  *bufio.Reader
	current Frame
	err     error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next frame. It returns false at EOF or on error;
// Err distinguishes the two.
func (s *Scanner) Next() bool {
	s.current = Frame{}
	if s.err != nil {
		return false
	}

	var dataLines []string
	var name string
	hasData := false

	emit := func() bool {
		if !hasData && name == "" {
			return false
		}
		s.current = Frame{Name: name, Data: strings.Join(dataLines, "\n")}
		return true
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if emit() {
				return true
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			field, value = line, ""
		} else {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			name = value
		}
	}
}

// Frame returns the frame read by the last successful Next.
func (s *Scanner) Frame() Frame {
	return s.current
}

// Err returns the error that stopped the scanner, or nil on clean EOF.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// SSETransport opens streams with an HTTP GET and reads text/event-stream
// frames from the response body.
type SSETransport struct {
	BaseURL  string
	Endpoint string
	// Client must not carry an overall timeout; streams are long-lived.
	Client *http.Client
}

func (t *SSETransport) Open(ctx context.Context, params Params) (Conn, error) {
	target := strings.TrimRight(t.BaseURL, "/") + t.Endpoint + "?" + params.Query()

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "dial", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, &TransportError{
			Op:  "dial",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, &TransportError{Op: "dial", Err: fmt.Errorf("unexpected content type %q", mt)}
	}

	p := newPipe(func() error {
		cancel()
		return resp.Body.Close()
	})
	go readSSE(p, resp.Body)
	return p, nil
}

func readSSE(p *pipe, body io.Reader) {
	defer close(p.events)

	if !p.send(Event{Kind: EventOpened}) {
		return
	}

	scanner := NewScanner(body)
	for scanner.Next() {
		f := scanner.Frame()
		ev := Event{Kind: EventData, Name: f.Name, Data: f.Data}
		if f.Name == EndEventName {
			ev = Event{Kind: EventEnd, Name: f.Name, Data: f.Data}
		}
		if !p.send(ev) {
			return
		}
	}

	if p.closed() {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = ErrUnexpectedEOF
	}
	p.send(Event{Kind: EventError, Err: err})
}
