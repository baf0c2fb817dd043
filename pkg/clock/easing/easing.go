// Package easing provides curves that reshape normalized time.
//
// Every function expects t in [0, 1]. Values outside that range are not
// special-cased: the formula is simply applied.
package easing

import (
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Func maps normalized time to eased time.
type Func func(t float32) float32

// Linear returns t unchanged.
func Linear(t float32) float32 { return t }

// EaseIn is the quadratic ease-in curve t².
func EaseIn(t float32) float32 { return t * t }

// EaseOut is the quadratic ease-out curve 1-(1-t)².
func EaseOut(t float32) float32 { return 1 - (1-t)*(1-t) }

// EaseInOut accelerates until t=0.5 then decelerates.
func EaseInOut(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - 2*(1-t)*(1-t)
}

// Sine is one full sine period over [0, 1]: sin(2πt).
func Sine(t float32) float32 {
	return float32(math.Sin(float64(t) * 2 * math.Pi))
}

// Smoothstep is 3t² - 2t³.
func Smoothstep(t float32) float32 { return t * t * (3 - 2*t) }

var registry = map[string]Func{
	"linear":     Linear,
	"easein":     EaseIn,
	"easeout":    EaseOut,
	"easeinout":  EaseInOut,
	"sine":       Sine,
	"smoothstep": Smoothstep,
}

// Lookup returns the easing function registered under name.
// Matching ignores case, dashes and underscores ("ease-in-out" == "EaseInOut").
func Lookup(name string) (Func, bool) {
	key := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	f, ok := registry[key]
	return f, ok
}

// Names lists the registered easing names in alphabetical order.
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}
