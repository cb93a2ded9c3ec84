// Package primary implements the primary feature layer: algorithmic
// inference over raw streams producing interval records, with optional
// remote incremental state so repeated windowed queries only touch the new
// tail of a participant's history.
package primary

import (
	"context"

	"go.uber.org/zap"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// AttachmentOwner tags attachment writes made by the engine.
const AttachmentOwner = "me"

// Attachment is the remote incremental state of one primary feature: the
// interval records computed so far and the high-water timestamp they cover.
type Attachment struct {
	End  int64            `json:"end"`
	Data []feature.Record `json:"data"`
}

// loadAttachment fetches a primary attachment, treating NotFound as empty
// prior state.
func loadAttachment(ctx context.Context, s *feature.Session, participant, key string) (*Attachment, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	var att Attachment
	if err := client.AttachmentGet(ctx, participant, key, &att); err != nil {
		if cerrors.Is(err, cerrors.KindNotFound) {
			return &Attachment{}, nil
		}
		return nil, err
	}
	return &att, nil
}

func saveAttachment(ctx context.Context, s *feature.Session, participant, key string, att *Attachment) error {
	client, err := s.Client()
	if err != nil {
		return err
	}
	return client.AttachmentSet(ctx, participant, AttachmentOwner, key, att)
}

// computeFunc produces the interval records for (from, to] plus the number
// of raw events that backed them.
type computeFunc func(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error)

// runWithAttachment is the shared orchestration of attachment-backed primary
// features: load prior state, drop the still-open newest record, compute the
// new tail, merge, persist, and clip the union to the request window.
func runWithAttachment(ctx context.Context, s *feature.Session, req feature.Request, key string, compute computeFunc) (*feature.PrimaryResult, error) {
	att, err := loadAttachment(ctx, s, req.ID, key)
	if err != nil {
		return nil, err
	}

	prior := att.Data
	var from int64
	if len(prior) > 0 {
		// The newest interval may still have been open when it was
		// committed; recompute it from its predecessor's end.
		newest := 0
		for i, rec := range prior {
			if rec.End() > prior[newest].End() {
				newest = i
			}
		}
		prior = append(append([]feature.Record{}, prior[:newest]...), prior[newest+1:]...)
		for _, rec := range prior {
			if rec.End() > from {
				from = rec.End()
			}
		}
	}

	hasRaw := feature.RawDataUnqueried
	merged := prior
	if from < req.End {
		fresh, rawCount, err := compute(ctx, s, req, from, req.End)
		if err != nil {
			return nil, err
		}
		if rawCount > 0 {
			hasRaw = feature.RawDataPresent
		} else {
			hasRaw = feature.RawDataNone
		}
		merged = append(append([]feature.Record{}, prior...), fresh...)
	}

	merged = feature.Dedup(merged)
	feature.SortByStart(merged)

	highWater := req.End
	for _, rec := range merged {
		if rec.End() > highWater {
			highWater = rec.End()
		}
	}
	if err := saveAttachment(ctx, s, req.ID, key, &Attachment{End: highWater, Data: merged}); err != nil {
		s.Logger().Warn("attachment write failed, result still served",
			zap.String("key", key), zap.Error(err))
	}

	clipped := feature.ClipToWindow(merged, req.Start, req.End)
	return &feature.PrimaryResult{
		Timestamp:  req.Start,
		Duration:   req.End - req.Start,
		Data:       clipped,
		HasRawData: hasRaw,
	}, nil
}

// runStateless wraps a windowed computation with the uniform envelope.
func runStateless(ctx context.Context, s *feature.Session, req feature.Request, compute computeFunc) (*feature.PrimaryResult, error) {
	records, rawCount, err := compute(ctx, s, req, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	hasRaw := feature.RawDataNone
	if rawCount > 0 {
		hasRaw = feature.RawDataPresent
	}

	feature.SortByStart(records)
	return &feature.PrimaryResult{
		Timestamp:  req.Start,
		Duration:   req.End - req.Start,
		Data:       feature.ClipToWindow(records, req.Start, req.End),
		HasRawData: hasRaw,
	}, nil
}
