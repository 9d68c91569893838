package chrome

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const DefaultDeviceName = "Desktop 1920x1080"

// Device describes the viewport a recording browser emulates.
type Device struct {
	Name             string  `json:"name" yaml:"name"`
	Width            int64   `json:"width" yaml:"width"`
	Height           int64   `json:"height" yaml:"height"`
	UserAgent        string  `json:"user_agent" yaml:"user_agent"`
	DevicePixelRatio float64 `json:"device_pixel_ratio" yaml:"device_pixel_ratio"`
	Mobile           bool    `json:"mobile" yaml:"mobile"`
	Touch            bool    `json:"touch" yaml:"touch"`
}

var PredefinedDevices = map[string]Device{
	"Desktop 1920x1080": {
		Name:             "Desktop 1920x1080",
		Width:            1920,
		Height:           1080,
		DevicePixelRatio: 1.0,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
	},
	"Laptop 1366x768": {
		Name:             "Laptop 1366x768",
		Width:            1366,
		Height:           768,
		DevicePixelRatio: 1.0,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
	},
	"iPhone 12 Pro": {
		Name:             "iPhone 12 Pro",
		Width:            390,
		Height:           844,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Mobile/15E148 Safari/604.1",
	},
	"iPad Pro": {
		Name:             "iPad Pro",
		Width:            1024,
		Height:           1366,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPad; CPU OS 13_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/87.0.4280.77 Mobile/15E148 Safari/604.1",
	},
	"Galaxy S20": {
		Name:             "Galaxy S20",
		Width:            360,
		Height:           800,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (Linux; Android 10; SM-G981B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.162 Mobile Safari/537.36",
	},
}

// LookupDevice finds a preset by name, case-insensitively. An empty name selects the
// default desktop preset.
func LookupDevice(name string) (Device, error) {
	if name == "" {
		name = DefaultDeviceName
	}
	if d, ok := PredefinedDevices[name]; ok {
		return d, nil
	}
	for key, d := range PredefinedDevices {
		if strings.EqualFold(key, name) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("unknown device %q (known: %s)", name, strings.Join(DeviceNames(), ", "))
}

func DeviceNames() []string {
	names := make([]string, 0, len(PredefinedDevices))
	for name := range PredefinedDevices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Emulate applies the device metrics, user agent and touch support to the current target.
func Emulate(d Device) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		dpr := d.DevicePixelRatio
		if dpr <= 0 {
			dpr = 1
		}
		if err := emulation.SetDeviceMetricsOverride(d.Width, d.Height, dpr, d.Mobile).Do(ctx); err != nil {
			return fmt.Errorf("set device metrics: %w", err)
		}
		if d.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(d.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user agent: %w", err)
			}
		}
		if err := emulation.SetTouchEmulationEnabled(d.Touch).Do(ctx); err != nil {
			return fmt.Errorf("set touch emulation: %w", err)
		}
		return nil
	})
}
