package app

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// URLOpener hands web URLs to the desktop's default handler.
type URLOpener struct {
	Runner CommandRunner
	GOOS   string
}

func NewURLOpener(runner CommandRunner) URLOpener {
	return URLOpener{Runner: runner, GOOS: runtime.GOOS}
}

func (o URLOpener) Open(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("refusing to open non-web url %q", url)
	}
	var err error
	switch o.GOOS {
	case "darwin":
		_, err = o.Runner.Run(ctx, "open", url)
	case "windows":
		_, err = o.Runner.Run(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		_, err = o.Runner.Run(ctx, "xdg-open", url)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
