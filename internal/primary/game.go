package primary

import (
	"context"
	"fmt"
	"strings"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// GameAttachmentKey stores the per-participant game level score intervals.
const GameAttachmentKey = "cortex.game_level_scores"

func init() {
	feature.RegisterPrimary("cortex.game_level_scores", "game_level_scores",
		[]string{"lamp.game"}, gameLevelScores)
}

func gameLevelScores(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runWithAttachment(ctx, s, req, GameAttachmentKey, computeGameLevelScores)
}

// computeGameLevelScores scores each cognitive game session per level: tap
// latency and accuracy for every game, plus the game-specific measures
// (pump counts for balloon risk, go/no-go accuracy for pop the bubbles,
// jewels collected for the jewels variants).
func computeGameLevelScores(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.game",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}
	if len(raw.Data) == 0 {
		return nil, 0, nil
	}

	specs, err := gameActivitySpecs(ctx, s, req.ID)
	if err != nil {
		return nil, 0, err
	}

	var records []feature.Record
	for _, ev := range raw.Data {
		spec := specs[ev.String("activity")]
		start := ev.Timestamp()
		end := start + ev.Int64("duration")

		byLevel := make(map[string][]map[string]interface{})
		var order []string
		for _, item := range sliceList(ev["temporal_slices"]) {
			level := levelKey(item["level"])
			if _, seen := byLevel[level]; !seen {
				order = append(order, level)
			}
			byLevel[level] = append(byLevel[level], item)
		}

		for _, level := range order {
			rec := scoreGameLevel(spec, byLevel[level])
			rec["start"] = start
			rec["end"] = end
			rec["activity"] = ev.String("activity")
			rec["spec"] = spec
			rec["level"] = level
			records = append(records, rec)
		}
	}

	return records, len(raw.Data), nil
}

// scoreGameLevel reduces one level's slices to its score record.
func scoreGameLevel(spec string, slices []map[string]interface{}) feature.Record {
	var (
		correct     int
		tapTimeSum  float64
		tapTimeN    int
		goCorrect   int
		goTotal     int
		nogoCorrect int
		nogoTotal   int
	)

	for _, item := range slices {
		isCorrect := item["type"] == true
		if isCorrect {
			correct++
			if dur, ok := floatField(item["duration"]); ok && dur > 0 {
				tapTimeSum += dur
				tapTimeN++
			}
		}

		switch spec {
		case "lamp.pop_the_bubbles":
			if strings.Contains(strings.ToLower(stringField(item["value"])), "no-go") {
				nogoTotal++
				if isCorrect {
					nogoCorrect++
				}
			} else {
				goTotal++
				if isCorrect {
					goCorrect++
				}
			}
		}
	}

	rec := feature.Record{
		"perc_correct": ratio(correct, len(slices)),
	}
	if tapTimeN > 0 {
		rec["avg_tap_time"] = tapTimeSum / float64(tapTimeN)
	}

	switch spec {
	case "lamp.balloon_risk":
		// A popped balloon banks nothing.
		popped := len(slices) > 0 && slices[len(slices)-1]["type"] != true
		if popped {
			rec["avg_pumps"] = 0.0
		} else {
			rec["avg_pumps"] = float64(correct)
		}
	case "lamp.pop_the_bubbles":
		rec["avg_go_perc_correct"] = ratio(goCorrect, goTotal)
		rec["avg_NO_go_perc_correct"] = ratio(nogoCorrect, nogoTotal)
	case "lamp.jewels_a", "lamp.jewels_b":
		rec["jewels_collected"] = correct
	}
	return rec
}

func gameActivitySpecs(ctx context.Context, s *feature.Session, participant string) (map[string]string, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	activities, err := client.Activities(ctx, participant)
	if err != nil {
		if cerrors.Is(err, cerrors.KindNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	specs := make(map[string]string, len(activities))
	for _, act := range activities {
		specs[act.ID] = act.Spec
	}
	return specs, nil
}

func levelKey(v interface{}) string {
	if v == nil {
		return ""
	}
	return stringField(v)
}

func stringField(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func floatField(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
