package feature

import (
	"context"
	"fmt"
	"sort"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
)

// Tier is the layer a feature belongs to.
type Tier int

const (
	TierRaw Tier = iota
	TierPrimary
	TierSecondary
)

func (t Tier) String() string {
	switch t {
	case TierRaw:
		return "raw"
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Request carries the arguments of one feature call. Start and End are ms
// since the epoch; Resolution applies to secondary features only. Params
// holds feature-specific options.
type Request struct {
	ID         string
	Start      int64
	End        int64
	Resolution int64
	Params     map[string]interface{}
}

// ParamFloat reads a numeric feature parameter, or def.
func (r Request) ParamFloat(key string, def float64) float64 {
	switch v := r.Params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// ParamString reads a string feature parameter, or def.
func (r Request) ParamString(key, def string) string {
	if v, ok := r.Params[key].(string); ok {
		return v
	}
	return def
}

// ParamBool reads a boolean feature parameter, or def.
func (r Request) ParamBool(key string, def bool) bool {
	if v, ok := r.Params[key].(bool); ok {
		return v
	}
	return def
}

// RawFunc computes a raw feature over the full request window.
type RawFunc func(ctx context.Context, s *Session, req Request) (*RawResult, error)

// PrimaryFunc computes a primary feature over the full request window.
type PrimaryFunc func(ctx context.Context, s *Session, req Request) (*PrimaryResult, error)

// SecondaryFunc computes one secondary record for a single resolution
// window. The registry iterates the grid and concatenates.
type SecondaryFunc func(ctx context.Context, s *Session, req Request) (Record, error)

// Entry is one registered feature.
type Entry struct {
	Name         string // dotted, e.g. "cortex.trips"
	Short        string // cache short name, e.g. "trips"
	Tier         Tier
	Dependencies []string

	raw       RawFunc
	primary   PrimaryFunc
	secondary SecondaryFunc
}

// registry is the process-wide feature table, populated by package init and
// read-only afterwards.
var registry = make(map[string]*Entry)

// RegisterRaw adds a raw feature to the table.
func RegisterRaw(name, short string, fn RawFunc) {
	registry[name] = &Entry{Name: name, Short: short, Tier: TierRaw, raw: fn}
}

// RegisterPrimary adds a primary feature to the table.
func RegisterPrimary(name, short string, deps []string, fn PrimaryFunc) {
	registry[name] = &Entry{Name: name, Short: short, Tier: TierPrimary, Dependencies: deps, primary: fn}
}

// RegisterSecondary adds a secondary feature to the table.
func RegisterSecondary(name, short string, deps []string, fn SecondaryFunc) {
	registry[name] = &Entry{Name: name, Short: short, Tier: TierSecondary, Dependencies: deps, secondary: fn}
}

// Get looks a feature up by name.
func Get(name string) (*Entry, bool) {
	e, ok := registry[name]
	return e, ok
}

// Exists reports whether a feature is registered.
func Exists(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists registered features sorted by name.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Call runs a feature by name, enforcing the tier contract: argument
// validation up front and a uniform envelope on return. Secondary features
// are evaluated across the resolution grid, newest window first, and
// returned ascending.
func Call(ctx context.Context, s *Session, name string, req Request) (interface{}, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, cerrors.E("feature.Call", cerrors.KindInvalidArgument,
			fmt.Sprintf("unknown feature %q", name), nil)
	}
	if err := validate(entry, req); err != nil {
		return nil, err
	}

	switch entry.Tier {
	case TierRaw:
		return entry.raw(ctx, s, req)
	case TierPrimary:
		return entry.primary(ctx, s, req)
	case TierSecondary:
		return callSecondary(ctx, s, entry, req)
	default:
		return nil, cerrors.E("feature.Call", cerrors.KindInvalidArgument,
			fmt.Sprintf("feature %q has unknown tier", name), nil)
	}
}

// CallRaw runs a raw feature and asserts its envelope.
func CallRaw(ctx context.Context, s *Session, name string, req Request) (*RawResult, error) {
	res, err := Call(ctx, s, name, req)
	if err != nil {
		return nil, err
	}
	raw, ok := res.(*RawResult)
	if !ok {
		return nil, cerrors.E("feature.CallRaw", cerrors.KindInvalidArgument,
			fmt.Sprintf("feature %q is not a raw feature", name), nil)
	}
	return raw, nil
}

// CallPrimary runs a primary feature and asserts its envelope.
func CallPrimary(ctx context.Context, s *Session, name string, req Request) (*PrimaryResult, error) {
	res, err := Call(ctx, s, name, req)
	if err != nil {
		return nil, err
	}
	prim, ok := res.(*PrimaryResult)
	if !ok {
		return nil, cerrors.E("feature.CallPrimary", cerrors.KindInvalidArgument,
			fmt.Sprintf("feature %q is not a primary feature", name), nil)
	}
	return prim, nil
}

func validate(entry *Entry, req Request) error {
	if req.ID == "" {
		return cerrors.E("feature.Call", cerrors.KindInvalidArgument, "id is required", nil)
	}
	if req.Start < 0 || req.End <= 0 {
		return cerrors.E("feature.Call", cerrors.KindInvalidArgument, "start and end are required", nil)
	}
	if req.Start > req.End {
		return cerrors.E("feature.Call", cerrors.KindInvalidArgument, "start must not exceed end", nil)
	}
	if entry.Tier == TierSecondary && req.Resolution <= 0 {
		return cerrors.E("feature.Call", cerrors.KindInvalidArgument, "resolution is required", nil)
	}
	return nil
}

func callSecondary(ctx context.Context, s *Session, entry *Entry, req Request) (*SecondaryResult, error) {
	n := (req.End - req.Start) / req.Resolution

	records := make([]Record, n)
	for i := n - 1; i >= 0; i-- {
		winStart := req.Start + int64(i)*req.Resolution
		winEnd := winStart + req.Resolution

		winReq := req
		winReq.Start = winStart
		winReq.End = winEnd

		rec, err := entry.secondary(ctx, s, winReq)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			rec = Record{"value": nil}
		}
		rec["timestamp"] = winStart
		records[i] = rec
	}

	return &SecondaryResult{
		Timestamp:  req.Start,
		Duration:   req.End - req.Start,
		Resolution: req.Resolution,
		Data:       records,
	}, nil
}
