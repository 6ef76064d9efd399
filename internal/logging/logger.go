package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sliceline.app/internal/obs"
)

// Config names the two external sinks. Empty URLs disable shipping for that
// sink; the pipeline still runs so call sites never care.
type Config struct {
	// Component is the source label attached to every event.
	Component string
	// AggregatorURL receives the Loki-style push payload directly.
	AggregatorURL  string
	AggregatorUser string
	AggregatorKey  string
	// FactoryURL is the base URL of the fulfillment collaborator; events go
	// to its /api/log endpoint wrapped with the API key.
	FactoryURL string
	FactoryKey string
}

// Event is the wire shape shared by both sinks.
type Event struct {
	Streams []Stream `json:"streams"`
}

// Stream is one labeled value set inside an Event.
type Stream struct {
	Labels Labels      `json:"stream"`
	Values [][2]string `json:"values"`
}

// Labels classify an event for the sinks.
type Labels struct {
	Component string `json:"component"`
	Level     string `json:"level"`
	Type      string `json:"type"`
}

// Logger builds redacted structured events and ships them to both sinks
// without ever failing the request that produced them.
type Logger struct {
	cfg    Config
	client *http.Client
	local  *log.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// Option configures a Logger.
type Option func(*Logger)

// WithHTTPClient overrides the transport used for both sinks.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Logger) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLocalLogger overrides where sink failures are reported.
func WithLocalLogger(lg *log.Logger) Option {
	return func(l *Logger) {
		if lg != nil {
			l.local = lg
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(l *Logger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New constructs the pipeline.
func New(cfg Config, opts ...Option) *Logger {
	l := &Logger{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		local:  obs.Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StatusToLevel maps an HTTP status code to a severity label.
func StatusToLevel(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "warn"
	default:
		return "info"
	}
}

// HTTP wraps a handler so every request/response pair produces exactly one
// log event. The response payload is tee'd on its way out; the handler's
// writes pass through untouched.
func (l *Logger) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody []byte
		var readErr error
		if r.Body != nil {
			reqBody, readErr = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		cw := &captureWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(cw, r)

		data := map[string]any{
			"authorized": r.Header.Get("Authorization") != "",
			"path":       r.URL.Path,
			"method":     r.Method,
			"statusCode": cw.code,
			"reqBody":    bodyValue(reqBody),
			"resBody":    bodyValue(cw.body.Bytes()),
		}
		if readErr != nil {
			data["reqBodyTruncated"] = readErr.Error()
		}
		l.log(StatusToLevel(cw.code), "http", data)
	})
}

// DBQuery records a database operation. Only the statement text is logged.
func (l *Logger) DBQuery(query string) {
	l.log("info", "db", map[string]any{"query": query})
}

// FactoryCall records an outbound fulfillment-factory interaction.
func (l *Logger) FactoryCall(info any) {
	l.log("info", "factory", info)
}

// UnhandledError records a failure that escaped the handler stack.
func (l *Logger) UnhandledError(err error, status int) {
	l.log("error", "unhandledError", map[string]any{
		"message": err.Error(),
		"status":  status,
	})
}

// Flush waits for in-flight shipments; used on shutdown and in tests.
func (l *Logger) Flush() {
	l.wg.Wait()
}

func (l *Logger) log(level, typ string, data any) {
	ts := strconv.FormatInt(l.now().UnixNano(), 10)
	event := Event{Streams: []Stream{{
		Labels: Labels{Component: l.cfg.Component, Level: level, Type: typ},
		Values: [][2]string{{ts, Redact(data)}},
	}}}
	l.emit(event)
}

// emit forwards the event to both sinks concurrently. Shipping never blocks
// the caller and sink failures surface only on the local logger.
func (l *Logger) emit(event Event) {
	if l.cfg.AggregatorURL != "" {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.shipAggregator(event)
		}()
	}
	if l.cfg.FactoryURL != "" {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.shipFactory(event)
		}()
	}
}

func (l *Logger) shipAggregator(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		l.sinkFailure("aggregator", err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, l.cfg.AggregatorURL, bytes.NewReader(body))
	if err != nil {
		l.sinkFailure("aggregator", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s:%s", l.cfg.AggregatorUser, l.cfg.AggregatorKey))

	resp, err := l.client.Do(req)
	if err != nil {
		l.sinkFailure("aggregator", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.sinkFailure("aggregator", fmt.Errorf("status %d", resp.StatusCode))
	}
}

func (l *Logger) shipFactory(event Event) {
	body, err := json.Marshal(map[string]any{
		"apiKey": l.cfg.FactoryKey,
		"event":  event,
	})
	if err != nil {
		l.sinkFailure("factory", err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, l.cfg.FactoryURL+"/api/log", bytes.NewReader(body))
	if err != nil {
		l.sinkFailure("factory", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		l.sinkFailure("factory", err)
		return
	}
	defer resp.Body.Close()
	// The factory replies with free-form diagnostic text. It is opaque and
	// discarded; it must never be interpreted or executed.
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.sinkFailure("factory", fmt.Errorf("status %d", resp.StatusCode))
	}
}

func (l *Logger) sinkFailure(sink string, err error) {
	entry, _ := json.Marshal(map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   "log sink unavailable",
		"sink":  sink,
		"error": err.Error(),
	})
	l.local.Println(string(entry))
}

// bodyValue parses a captured payload as JSON when possible so redaction
// sees structure instead of an opaque string.
func bodyValue(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}

// captureWriter tees the response payload while passing every write through
// to the client exactly once.
type captureWriter struct {
	http.ResponseWriter
	code int
	body bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
