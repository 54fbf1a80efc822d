package urls

import "testing"

func TestIsURLValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "https url", input: "https://example.com/playlist?list=x", want: true},
		{name: "http url", input: "http://example.com", want: true},
		{name: "no scheme", input: "example.com/playlist", want: false},
		{name: "unsupported scheme", input: "ftp://example.com", want: false},
		{name: "empty", input: "", want: false},
		{name: "garbage", input: "://nope", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsURLValid(tt.input); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFixURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "adds https", input: "example.com/playlist?list=x", want: "https://example.com/playlist?list=x"},
		{name: "keeps https", input: "https://example.com", want: "https://example.com"},
		{name: "keeps http", input: "http://example.com", want: "http://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixURL(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  https://example.com/x  "); got != "https://example.com/x" {
		t.Errorf("expected trimmed url, got %q", got)
	}
}
