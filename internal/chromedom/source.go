// Package chromedom drives a captive Chrome tab over the DevTools protocol
// and feeds raw pointer signals into the capture pipeline. The injected
// script only observes and forwards; everything that decides or interprets
// lives on the Go side.
package chromedom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"clicktrail/internal/capture"
	"clicktrail/internal/domtree"
	"clicktrail/internal/models"
)

// SignalFunc receives one decoded pointer signal. Kind is "click" or "move";
// target is nil when nothing was under the pointer.
type SignalFunc func(kind string, target domtree.Node, sig capture.Signal)

// NavigateFunc receives top-frame navigations.
type NavigateFunc func(url string)

// Source owns the browser tab. Start it once; it is not restartable.
type Source struct {
	startURL string
	headless bool
	log      pslog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func NewSource(startURL string, headless bool, logger pslog.Logger) *Source {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Source{startURL: startURL, headless: headless, log: logger}
}

// Start launches the browser, installs the capture script, and navigates to
// the start URL. Signals and navigations are delivered on background
// goroutines until the tab closes or Stop is called.
func (s *Source) Start(ctx context.Context, onSignal SignalFunc, onNavigate NavigateFunc) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", s.headless),
		chromedp.Flag("no-first-run", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s.ctx = tabCtx
	s.cancel = tabCancel
	s.allocCancel = allocCancel

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventBindingCalled:
			if e.Name != bindingName {
				return
			}
			payload := e.Payload
			go s.dispatch(payload, onSignal)
		case *page.EventFrameNavigated:
			if e.Frame.ParentID != "" {
				return
			}
			url := e.Frame.URL
			if onNavigate != nil {
				go onNavigate(url)
			}
		}
	})

	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingName).Do(ctx); err != nil {
				return fmt.Errorf("failed to add binding: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(captureScript).Do(ctx); err != nil {
				return fmt.Errorf("failed to install capture script: %w", err)
			}
			return nil
		}),
		chromedp.Navigate(s.startURL),
	)
	if err != nil {
		s.Stop()
		return fmt.Errorf("failed to start browser: %w", err)
	}
	s.log.Info("browser started", "url", s.startURL, "headless", s.headless)
	return nil
}

func (s *Source) dispatch(payload string, onSignal SignalFunc) {
	var raw rawSignal
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		s.log.With("err", err).Warn("dropping malformed signal payload")
		return
	}
	sig := capture.Signal{
		PageURL:   raw.URL,
		X:         raw.X,
		Y:         raw.Y,
		PageX:     raw.PageX,
		PageY:     raw.PageY,
		ScrollX:   raw.ScrollX,
		ScrollY:   raw.ScrollY,
		ViewportW: raw.ViewportW,
		ViewportH: raw.ViewportH,
		DocW:      raw.DocW,
		DocH:      raw.DocH,
		TSUTC:     raw.TS,
	}
	onSignal(raw.Kind, chainTarget(raw.Chain), sig)
}

// Done is closed when the tab context ends, including the user closing the
// browser window.
func (s *Source) Done() <-chan struct{} {
	if s.ctx == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.ctx.Done()
}

// Flash asynchronously outlines the clicked element. Failures are logged and
// otherwise ignored; the capture path never waits on the browser.
func (s *Source) Flash(selector string) {
	if s.ctx == nil || selector == "" {
		return
	}
	quoted, err := json.Marshal(selector)
	if err != nil {
		return
	}
	go func() {
		script := fmt.Sprintf(flashScript, quoted)
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, nil)); err != nil {
			s.log.With("err", err).Debug("highlight flash failed")
		}
	}()
}

// Visit snapshots the current page URL and window dimensions.
func (s *Source) Visit(ctx context.Context) (models.PageVisit, error) {
	if s.ctx == nil {
		return models.PageVisit{}, fmt.Errorf("browser not started")
	}
	var res struct {
		URL string `json:"url"`
		W   int    `json:"w"`
		H   int    `json:"h"`
	}
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(visitScript, &res)); err != nil {
		return models.PageVisit{}, fmt.Errorf("failed to probe page: %w", err)
	}
	return models.PageVisit{URL: res.URL, WindowW: res.W, WindowH: res.H}, nil
}

// Stop tears the browser down. Safe to call more than once.
func (s *Source) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
