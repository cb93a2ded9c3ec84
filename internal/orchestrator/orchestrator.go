// Package orchestrator runs a set of features over a set of participants,
// expanding hierarchical identifiers and concatenating per-participant
// results into one table per feature.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
)

// DefaultResolution is one day.
const DefaultResolution = int64(24 * 60 * 60 * 1000)

// Options bound a run. Zero Start and End derive the window per participant
// from the extent of their raw data.
type Options struct {
	Start      int64
	End        int64
	Resolution int64
	Params     map[string]interface{}
}

// Table is the concatenated output of one feature across all resolved
// participants. Every row carries the participant id under "id".
type Table struct {
	Feature string           `json:"feature"`
	Rows    []feature.Record `json:"rows"`
}

// Run resolves ids to participants and evaluates every known feature for
// each. Unknown features and per-feature failures are warned and skipped;
// the run only fails when the hierarchy itself cannot be resolved.
func Run(ctx context.Context, s *feature.Session, ids []string, features []string, opts Options) ([]Table, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	participants, err := ResolveParticipants(ctx, client, ids)
	if err != nil {
		return nil, err
	}

	if opts.Resolution <= 0 {
		opts.Resolution = DefaultResolution
	}

	var tables []Table
	for _, name := range features {
		entry, ok := feature.Get(name)
		if !ok {
			s.Logger().Warn("unknown feature skipped", zap.String("feature", name))
			continue
		}

		table := Table{Feature: name}
		for _, participant := range participants {
			rows, err := runOne(ctx, s, entry, participant, opts)
			if err != nil {
				s.Logger().Warn("feature failed for participant, continuing",
					zap.String("feature", name),
					zap.String("participant", participant),
					zap.Error(err))
				continue
			}
			table.Rows = append(table.Rows, rows...)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func runOne(ctx context.Context, s *feature.Session, entry *feature.Entry, participant string, opts Options) ([]feature.Record, error) {
	start, end := opts.Start, opts.End
	if start == 0 && end == 0 {
		var ok bool
		start, end, ok = dataExtent(ctx, s, participant)
		if !ok {
			s.Logger().Warn("participant has no raw data, skipped",
				zap.String("participant", participant))
			return nil, nil
		}
	}

	req := feature.Request{
		ID:         participant,
		Start:      start,
		End:        end,
		Resolution: opts.Resolution,
		Params:     opts.Params,
	}

	res, err := feature.Call(ctx, s, entry.Name, req)
	if err != nil {
		return nil, err
	}

	var data []feature.Record
	switch r := res.(type) {
	case *feature.RawResult:
		data = r.Data
	case *feature.PrimaryResult:
		data = r.Data
	case *feature.SecondaryResult:
		data = r.Data
	}

	rows := make([]feature.Record, 0, len(data))
	for _, rec := range data {
		row := rec.Clone()
		row["id"] = participant
		rows = append(rows, row)
	}
	return rows, nil
}

// dataExtent derives the default window as the min/max event timestamp
// across every raw stream the participant has.
func dataExtent(ctx context.Context, s *feature.Session, participant string) (int64, int64, bool) {
	now := time.Now().UnixMilli()

	var minTS, maxTS int64
	found := false
	for _, name := range feature.Names() {
		entry, ok := feature.Get(name)
		if !ok || entry.Tier != feature.TierRaw {
			continue
		}
		raw, err := feature.CallRaw(ctx, s, name, feature.Request{
			ID: participant, Start: 0, End: now,
		})
		if err != nil {
			s.Logger().Debug("raw extent probe failed",
				zap.String("feature", name), zap.Error(err))
			continue
		}
		for _, rec := range raw.Data {
			ts := rec.Timestamp()
			if !found || ts < minTS {
				minTS = ts
			}
			if !found || ts > maxTS {
				maxTS = ts
			}
			found = true
		}
	}
	return minTS, maxTS, found
}

// ResolveParticipants expands each id to its transitive participant set.
// The level of an id is read off its parent set: no parent means researcher,
// a Researcher parent means study, a Study parent means participant.
func ResolveParticipants(ctx context.Context, client *lamp.Client, ids []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, id := range ids {
		parents, err := client.Parent(ctx, id)
		if err != nil && !cerrors.Is(err, cerrors.KindNotFound) {
			return nil, err
		}

		switch {
		case parents["Study"] != "":
			add(id)
		case parents["Researcher"] != "":
			participants, err := client.Participants(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, p := range participants {
				add(p.ID)
			}
		default:
			studies, err := client.Studies(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, study := range studies {
				participants, err := client.Participants(ctx, study.ID)
				if err != nil {
					return nil, err
				}
				for _, p := range participants {
					add(p.ID)
				}
			}
		}
	}
	return out, nil
}
