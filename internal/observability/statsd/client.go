package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
}

// Client emits metrics over UDP using the StatsD line protocol with
// DogStatsD-style tags. Safe for concurrent use.
type Client struct {
	enabled    bool
	address    string
	prefix     string
	globalTags map[string]string

	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured StatsD endpoint unless disabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	address := strings.TrimSpace(cfg.Address)

	c := &Client{
		enabled:    cfg.Enabled && address != "",
		address:    address,
		prefix:     cleanPrefix(cfg.Prefix),
		globalTags: copyTags(cfg.GlobalTags),
		logger:     logger,
	}
	if !c.enabled {
		return c, nil
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}
	c.conn = conn
	return c, nil
}

// Enabled reports whether the client actively emits metrics.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && c.conn != nil
}

// Count increments a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	if c == nil {
		return
	}
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge records the current value for a gauge metric.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	if c == nil {
		return
	}
	c.emit(name, ftoa(value), "g", tags)
}

// Timing records a timing metric using milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	if c == nil {
		return
	}
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, ftoa(ms), "ms", tags)
}

// Close releases the underlying UDP connection if one was established.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	metric := c.qualify(name)
	if metric == "" {
		return
	}

	var b strings.Builder
	b.WriteString(metric)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)
	b.WriteString(tagSuffix(c.globalTags, tags))

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		c.logger.Debug("statsd write failed", "error", err)
	}
}

func (c *Client) qualify(name string) string {
	cleaned := cleanName(name)
	switch {
	case c.prefix == "":
		return cleaned
	case cleaned == "":
		return c.prefix
	default:
		return c.prefix + "." + cleaned
	}
}

func cleanPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), ".")
}

// cleanName makes a metric name safe for the line protocol: spaces and
// slashes become underscores, repeated or dangling dots are removed.
func cleanName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.NewReplacer(" ", "_", "/", "_").Replace(n)
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// tagSuffix renders merged global and local tags in DogStatsD form,
// sorted for deterministic output. Local tags win on key collision.
func tagSuffix(global, local map[string]string) string {
	merged := make(map[string]string, len(global)+len(local))
	for _, src := range []map[string]string{global, local} {
		for k, v := range src {
			if key := strings.TrimSpace(k); key != "" {
				merged[key] = strings.TrimSpace(v)
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + merged[k]
	}
	return "|#" + strings.Join(pairs, ",")
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if key := strings.TrimSpace(k); key != "" {
			out[key] = strings.TrimSpace(v)
		}
	}
	return out
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
