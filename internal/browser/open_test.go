package browser

import (
	"path/filepath"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := command(tt.goos, "/tmp/slide1.png")
			if err != nil {
				t.Fatalf("command: %v", err)
			}
			if got := filepath.Base(cmd.Args[0]); got != tt.want {
				t.Errorf("program = %q, want %q", got, tt.want)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "/tmp/slide1.png" {
				t.Errorf("target = %q", last)
			}
		})
	}
	if _, err := command("plan9", "x"); err == nil {
		t.Error("plan9: expected error")
	}
}
