package oxia

import (
	"context"
	"strings"
	"testing"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "empty service address",
			cfg:     Config{Namespace: "scour"},
			wantErr: "service address is required",
		},
		{
			name:    "empty namespace",
			cfg:     Config{ServiceAddress: "localhost:6648"},
			wantErr: "namespace is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunKey(t *testing.T) {
	tests := []struct {
		number int
		want   string
	}{
		{1, "/scour/v1/runs/00000001"},
		{24399, "/scour/v1/runs/00024399"},
		{99999999, "/scour/v1/runs/99999999"},
	}
	for _, tt := range tests {
		if got := RunKey(tt.number); got != tt.want {
			t.Errorf("RunKey(%d) = %s, want %s", tt.number, got, tt.want)
		}
	}

	// Zero padding keeps lexicographic scan order equal to numeric order.
	if RunKey(9) >= RunKey(10) {
		t.Error("key order must follow run-number order")
	}
}

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", ""},
		{"a", "b"},
		{"/scour/v1/runs/", "/scour/v1/runs0"},
		{string([]byte{0xFF}), ""},
		{string([]byte{0x00, 0xFF}), string([]byte{0x01})},
	}
	for _, tt := range tests {
		if got := prefixEnd(tt.prefix); got != tt.want {
			t.Errorf("prefixEnd(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}
