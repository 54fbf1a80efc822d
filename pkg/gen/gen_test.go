package gen

import "testing"

func TestKey(t *testing.T) {
	if got := Key("url", "mp3"); got != "url|mp3" {
		t.Errorf("expected url|mp3, got %q", got)
	}
}

func TestUUIDv5Deterministic(t *testing.T) {
	a := UUIDv5("https://example.com/playlist?list=x", "mp3")
	b := UUIDv5("https://example.com/playlist?list=x", "mp3")

	if a != b {
		t.Errorf("expected identical inputs to yield identical ids: %q vs %q", a, b)
	}
}

func TestUUIDv5Distinct(t *testing.T) {
	tests := []struct {
		name string
		a1   string
		b1   string
		a2   string
		b2   string
	}{
		{name: "different url", a1: "url1", b1: "mp3", a2: "url2", b2: "mp3"},
		{name: "different format", a1: "url1", b1: "mp3", a2: "url1", b2: "wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if UUIDv5(tt.a1, tt.b1) == UUIDv5(tt.a2, tt.b2) {
				t.Error("expected distinct ids")
			}
		})
	}
}
