package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/pkg/chrome"
)

const defaultLoadTimeout = 30 * time.Second

func allocatorOptions(chromePath string, headless bool, device chrome.Device) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-pings", true),
	)
	if device.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(device.UserAgent))
	}
	return opts
}

// launchBrowser starts Chrome, installs the capture script on every new document and
// starts the event loop. Callers hold r.mutex.
func (r *Recorder) launchBrowser() error {
	chromePath, err := chrome.FindChrome(r.opts.ChromePath)
	if err != nil {
		return err
	}
	script, err := recordingScript(r.opts.Capture.Keys)
	if err != nil {
		return err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		allocatorOptions(chromePath, r.opts.Headless, r.device)...)
	sugar := r.logger.Named("chromedp").Sugar()
	ctx, ctxCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf))

	events := make(chan capture.RawEvent, r.opts.QueueSize)
	done := make(chan struct{})
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if called, ok := ev.(*cdpruntime.EventBindingCalled); ok && called.Name == bindingName {
			r.enqueue(events, called.Payload)
		}
	})

	r.cancel = func() {
		r.closeBrowser(ctx)
		ctxCancel()
		allocCancel()
		<-done
	}

	go r.listenForEvents(ctx, events, done)

	timeout := r.opts.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	loadCtx, loadCancel := context.WithTimeout(ctx, timeout)
	defer loadCancel()
	err = chromedp.Run(loadCtx,
		cdpruntime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
		chrome.Emulate(r.device),
		chromedp.Navigate(r.targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		r.cancel()
		r.cancel = nil
		return fmt.Errorf("failed to start recording: %w", err)
	}
	return nil
}

// enqueue runs on chromedp's event goroutine and must not block it.
func (r *Recorder) enqueue(events chan<- capture.RawEvent, payload string) {
	var evt capture.RawEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		r.logger.Warn("malformed event payload", zap.Error(err))
		return
	}
	select {
	case events <- evt:
	default:
		r.logger.Warn("event queue full, dropping event", zap.String("event", string(evt.Type)))
	}
}

// listenForEvents feeds queued events to the capture pipeline in arrival order.
func (r *Recorder) listenForEvents(ctx context.Context, events <-chan capture.RawEvent, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			r.Ingest(evt)
		}
	}
}

// closeBrowser asks Chrome to exit before the contexts are torn down.
func (r *Recorder) closeBrowser(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := chromedp.Cancel(ctx); err != nil {
		r.logger.Debug("closing recording browser", zap.Error(err))
	}
}
