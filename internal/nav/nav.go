package nav

import (
	"fmt"

	"github.com/reptin/rcs/internal/logger"
)

// Navigator opens a search URL in a new browser tab.
type Navigator interface {
	OpenTab(url string) error
}

// OpenFunc adapts a function to the Navigator interface.
type OpenFunc func(url string) error

// OpenTab implements Navigator.
func (f OpenFunc) OpenTab(url string) error { return f(url) }

// Fallback asks the primary navigator first and degrades to the fallback
// when the primary cannot be reached.
type Fallback struct {
	Primary  Navigator
	Degraded Navigator
}

// OpenTab implements Navigator.
func (f Fallback) OpenTab(url string) error {
	err := f.Primary.OpenTab(url)
	if err == nil {
		return nil
	}
	logger.Warn("[Nav] Primary navigation failed, using fallback: %v", err)
	if f.Degraded == nil {
		return err
	}
	if ferr := f.Degraded.OpenTab(url); ferr != nil {
		return fmt.Errorf("navigation failed: %v (fallback: %w)", err, ferr)
	}
	return nil
}
