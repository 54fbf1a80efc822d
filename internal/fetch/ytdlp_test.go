package fetch

import (
	"testing"

	"tunepull/internal/entity"
)

const playlistJSON = `{"_type":"playlist","id":"PLx","title":"Mix","playlist_count":2,` +
	`"entries":[{"id":"v1","title":"First","url":"https://example.com/watch?v=v1","duration":181.2},` +
	`{"id":"v2","title":"Second","url":"https://example.com/watch?v=v2","duration":99.6}]}`

const videoJSON = `{"id":"v9","title":"Single","webpage_url":"https://example.com/watch?v=v9","duration":240.4}`

func TestParseStdout(t *testing.T) {
	stdout := "/downloads/First.mp3\n" + playlistJSON + "\nnot json at all\n\n"

	results, err := ParseStdout(stdout)
	if err != nil {
		t.Fatalf("parse stdout: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	root := results[0]
	if root.Type != "playlist" || root.ID != "PLx" {
		t.Errorf("unexpected root: %+v", root)
	}
	if len(root.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(root.Entries))
	}
}

func TestComposePlaylistInfo(t *testing.T) {
	t.Run("playlist", func(t *testing.T) {
		results, _ := ParseStdout(playlistJSON)

		info, err := composePlaylistInfo("https://example.com/playlist?list=PLx", results)
		if err != nil {
			t.Fatalf("compose: %v", err)
		}

		if info.Title != "Mix" {
			t.Errorf("expected title Mix, got %q", info.Title)
		}
		if len(info.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(info.Entries))
		}
		if info.Entries[0].URL != "https://example.com/watch?v=v1" {
			t.Errorf("unexpected entry url: %q", info.Entries[0].URL)
		}
		if info.Entries[0].Duration != 181 {
			t.Errorf("expected rounded duration 181, got %d", info.Entries[0].Duration)
		}
	})

	t.Run("single video becomes one-entry playlist", func(t *testing.T) {
		results, _ := ParseStdout(videoJSON)

		info, err := composePlaylistInfo("https://example.com/watch?v=v9", results)
		if err != nil {
			t.Fatalf("compose: %v", err)
		}

		if len(info.Entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(info.Entries))
		}
		if info.Entries[0].URL != "https://example.com/watch?v=v9" {
			t.Errorf("unexpected entry url: %q", info.Entries[0].URL)
		}
		if info.Entries[0].Duration != 240 {
			t.Errorf("expected rounded duration 240, got %d", info.Entries[0].Duration)
		}
	})

	t.Run("no results", func(t *testing.T) {
		if _, err := composePlaylistInfo("https://example.com", nil); err == nil {
			t.Error("expected an error for empty results")
		}
	})
}

func TestParseRealizedPath(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{
			name:   "single path",
			stdout: "/downloads/Song.mp3\n",
			want:   "/downloads/Song.mp3",
		},
		{
			name:   "last path wins",
			stdout: "/downloads/Song.m4a\n/downloads/Song.mp3\n",
			want:   "/downloads/Song.mp3",
		},
		{
			name:   "json lines ignored",
			stdout: playlistJSON + "\n/downloads/Song.mp3\n",
			want:   "/downloads/Song.mp3",
		},
		{
			name:   "empty stdout",
			stdout: "",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRealizedPath(tt.stdout); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOutputTemplate(t *testing.T) {
	job := &entity.Job{TargetPath: "/downloads/Song.mp3", Format: entity.FormatMP3}

	if got := outputTemplate(job); got != "/downloads/Song.%(ext)s" {
		t.Errorf("unexpected template: %q", got)
	}
}
