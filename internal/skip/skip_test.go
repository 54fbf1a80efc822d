package skip

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"tunepull/internal/entity"
)

func newTestPolicy() Policy {
	return NewFilePolicy(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestShouldSkip(t *testing.T) {
	dir := t.TempDir()

	existing := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(existing, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	empty := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	subdir := filepath.Join(dir, "dir.mp3")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		name string
		job  *entity.Job
		want bool
	}{
		{
			name: "nonempty file with matching extension",
			job:  &entity.Job{TargetPath: existing, Format: entity.FormatMP3},
			want: true,
		},
		{
			name: "missing file",
			job:  &entity.Job{TargetPath: filepath.Join(dir, "missing.mp3"), Format: entity.FormatMP3},
			want: false,
		},
		{
			name: "empty file",
			job:  &entity.Job{TargetPath: empty, Format: entity.FormatMP3},
			want: false,
		},
		{
			name: "directory at target path",
			job:  &entity.Job{TargetPath: subdir, Format: entity.FormatMP3},
			want: false,
		},
		{
			name: "extension mismatch",
			job:  &entity.Job{TargetPath: existing, Format: entity.FormatWAV},
			want: false,
		},
		{
			name: "nil job",
			job:  nil,
			want: false,
		},
		{
			name: "empty target path",
			job:  &entity.Job{Format: entity.FormatMP3},
			want: false,
		},
	}

	policy := newTestPolicy()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldSkip(tt.job); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
