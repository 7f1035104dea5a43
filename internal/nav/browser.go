package nav

import (
	"fmt"
	"os/exec"
	"runtime"
)

// SystemBrowser opens URLs in the user's default browser.
type SystemBrowser struct{}

// OpenTab implements Navigator.
func (SystemBrowser) OpenTab(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// Detach; the browser owns the tab from here.
	go cmd.Wait()
	return nil
}
