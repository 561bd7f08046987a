// Package browser hands files and links to the desktop's default viewer.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Open shows target, a file path or URL, with the default application.
// It returns once the viewer has been started.
func Open(target string) error {
	cmd, err := command(runtime.GOOS, target)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func command(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", target), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("browser.Open: unsupported OS %s", goos)
	}
}
