// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"
)

func TestNewThemeFor(t *testing.T) {
	dark := NewThemeFor("dark")
	if !dark.IsDark {
		t.Error("dark preference should set IsDark")
	}
	if dark.GlamourStyle() != "dark" {
		t.Errorf("GlamourStyle() = %q", dark.GlamourStyle())
	}

	light := NewThemeFor("light")
	if light.IsDark {
		t.Error("light preference should clear IsDark")
	}
	if light.GlamourStyle() != "light" {
		t.Errorf("GlamourStyle() = %q", light.GlamourStyle())
	}

	if NewTheme() == nil {
		t.Fatal("NewTheme() returned nil")
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewThemeFor("dark")
	for name, s := range map[string]string{
		"header":   theme.HeaderTitle.Render("doc"),
		"document": theme.Document.Render("body"),
		"status":   theme.StatusBar.Render("ready"),
		"added":    theme.DiffAdded.Render("+x"),
		"error":    theme.ErrorBox.Render("boom"),
	} {
		if s == "" {
			t.Errorf("%s style rendered nothing", name)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	testCases := []struct {
		status    string
		indicator string
	}{
		{"completed", StatusIndicators.Success},
		{"failed", StatusIndicators.Error},
		{"canceled", StatusIndicators.Warning},
		{"running", StatusIndicators.Info},
	}
	for _, tc := range testCases {
		got := RenderStatus(tc.status)
		if !strings.Contains(got, tc.indicator) || !strings.Contains(got, tc.status) {
			t.Errorf("RenderStatus(%q) = %q, want indicator %q", tc.status, got, tc.indicator)
		}
	}
}

func TestSpinnerConfig(t *testing.T) {
	if d := LineSpinner.Duration(); d != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v", d)
	}
	if d := (SpinnerConfig{}).Duration(); d != time.Second {
		t.Errorf("zero FPS duration = %v", d)
	}
	b := DotsSpinner.Bubble()
	if len(b.Frames) != len(DotsSpinner.Frames) || b.FPS != DotsSpinner.Duration() {
		t.Errorf("Bubble() = %+v", b)
	}
}
