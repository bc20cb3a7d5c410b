// Package render loads pages in headless Chrome for storefronts that inject
// prices with client-side script.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"game-hunter/pkg/httpclient"
)

type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Chrome struct {
	Timeout time.Duration
	// Settle is how long to wait after the body is ready for scripts to fill
	// in prices.
	Settle time.Duration
}

func NewChrome(timeout time.Duration) *Chrome {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Chrome{Timeout: timeout, Settle: 2 * time.Second}
}

// Render returns the outer HTML of url after scripts have run.
func (c *Chrome) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(httpclient.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, c.Timeout)
	defer cancelRender()

	logrus.WithFields(logrus.Fields{"component": "render", "url": url}).Debug("Rendering page")

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(c.Settle),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp render %s: %w", url, err)
	}
	return html, nil
}
