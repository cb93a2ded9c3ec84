// Package secondary implements the secondary feature layer: scalar
// summaries of raw and primary dependencies, evaluated per resolution
// window by the registry.
package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// rawWindow pulls one raw dependency over the current window.
func rawWindow(ctx context.Context, s *feature.Session, name string, req feature.Request) (*feature.RawResult, error) {
	return feature.CallRaw(ctx, s, name, feature.Request{
		ID: req.ID, Start: req.Start, End: req.End, Params: req.Params,
	})
}

// primaryWindow pulls one primary dependency over the current window.
func primaryWindow(ctx context.Context, s *feature.Session, name string, req feature.Request) (*feature.PrimaryResult, error) {
	return feature.CallPrimary(ctx, s, name, feature.Request{
		ID: req.ID, Start: req.Start, End: req.End, Params: req.Params,
	})
}

// overlapMS is the length of the intersection of [aStart, aEnd] and
// [bStart, bEnd], zero when disjoint.
func overlapMS(aStart, aEnd, bStart, bEnd int64) int64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
