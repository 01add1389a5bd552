package statsd

import (
	"net"
	"strings"
	"testing"
)

func TestCleanPrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}

	for input, want := range tests {
		if got := cleanPrefix(input); got != want {
			t.Fatalf("cleanPrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" auth/metric ": "auth_metric",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"slash/name/id": "slash_name_id",
	}

	for input, want := range tests {
		if got := cleanName(input); got != want {
			t.Fatalf("cleanName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTagSuffix(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env": "prod",
		// Padded key/value to exercise the trimming path.
		" service ": " auth ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := tagSuffix(global, local)
	want := "|#env:stage,result:success,service:auth"

	if got != want {
		t.Fatalf("tagSuffix mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestTagSuffixEmpty(t *testing.T) {
	t.Parallel()

	if got := tagSuffix(nil, nil); got != "" {
		t.Fatalf("tagSuffix(nil, nil) = %q, want empty string", got)
	}
}

func TestCopyTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := copyTags(original)
	if cloned == nil {
		t.Fatal("copyTags returned nil map")
	}

	cloned["env"] = "stage"
	if original["env"] != "prod" {
		t.Fatal("copyTags did not copy values")
	}

	if _, ok := cloned[""]; ok {
		t.Fatal("copyTags kept empty key")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
