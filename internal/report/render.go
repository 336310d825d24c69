package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Default browser render parameters.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 900
	DefaultTimeoutSec = 30
)

// Renderer turns report HTML into PDF or PNG with a headless Chromium
// driven by chromedp.
type Renderer struct {
	// ExecPath overrides the browser binary; empty uses chromedp's lookup.
	ExecPath string

	Width   int
	Height  int
	Timeout time.Duration
}

func (rd Renderer) withDefaults() Renderer {
	if rd.Width <= 0 {
		rd.Width = DefaultWidth
	}
	if rd.Height <= 0 {
		rd.Height = DefaultHeight
	}
	if rd.Timeout <= 0 {
		rd.Timeout = DefaultTimeoutSec * time.Second
	}
	return rd
}

// Render writes r in format f. JSON and CSV do not need the browser.
func (rd Renderer) Render(ctx context.Context, r Report, f Format) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatJSON:
		err := WriteJSON(&buf, r)
		return buf.Bytes(), err
	case FormatCSV:
		err := WriteCSV(&buf, r)
		return buf.Bytes(), err
	}

	if err := WriteHTML(&buf, r); err != nil {
		return nil, fmt.Errorf("report html: %w", err)
	}
	switch f {
	case FormatPDF:
		return rd.PDF(ctx, buf.String())
	case FormatPNG:
		return rd.PNG(ctx, buf.String())
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// PDF prints html to a landscape PDF with backgrounds.
func (rd Renderer) PDF(parent context.Context, html string) ([]byte, error) {
	var pdf []byte
	err := rd.run(parent, html, chromedp.ActionFunc(func(ctx context.Context) error {
		buf, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithLandscape(true).
			Do(ctx)
		pdf = buf
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("report pdf: %w", err)
	}
	return pdf, nil
}

// PNG captures a full-page screenshot of html.
func (rd Renderer) PNG(parent context.Context, html string) ([]byte, error) {
	var png []byte
	if err := rd.run(parent, html, chromedp.FullScreenshot(&png, 100)); err != nil {
		return nil, fmt.Errorf("report png: %w", err)
	}
	return png, nil
}

// run loads html into a blank tab, waits for the body to be marked ready and
// then executes final.
func (rd Renderer) run(parent context.Context, html string, final chromedp.Action) error {
	rd = rd.withDefaults()

	allocCtx := parent
	if rd.ExecPath != "" {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(rd.ExecPath))
		var cancel context.CancelFunc
		allocCtx, cancel = chromedp.NewExecAllocator(parent, opts...)
		defer cancel()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, rd.Timeout)
	defer timeoutCancel()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(rd.Width), int64(rd.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		final,
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("chromedp run failed: %w", err)
	}
	return nil
}
