package primary

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
)

// SurveyAttachmentKey stores the per-participant survey score intervals.
const SurveyAttachmentKey = "cortex.survey_scores"

// maxQuestionScore is the top of the 0..3 scale every question type maps onto.
const maxQuestionScore = 3.0

func init() {
	feature.RegisterPrimary("cortex.survey_scores", "survey_scores",
		[]string{"lamp.survey"}, surveyScores)
}

// questionInfo joins a survey question's declared settings with the optional
// caller-supplied category override.
type questionInfo struct {
	setting  lamp.ActivitySetting
	category string
	reverse  bool
}

func surveyScores(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runWithAttachment(ctx, s, req, SurveyAttachmentKey, computeSurveyScores)
}

// computeSurveyScores scores each completed survey event: every answered
// question maps onto a 0..3 scale by its declared type, then scores average
// per category within the event. The default category is the survey's name;
// a "question_categories" param remaps individual questions and may flip
// their polarity.
func computeSurveyScores(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.survey",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}
	if len(raw.Data) == 0 {
		return nil, 0, nil
	}

	questions, err := surveyQuestions(ctx, s, req)
	if err != nil {
		return nil, 0, err
	}

	var records []feature.Record
	for _, ev := range raw.Data {
		sums := make(map[string]float64)
		counts := make(map[string]int)

		for _, item := range sliceList(ev["temporal_slices"]) {
			text, _ := item["item"].(string)
			info, ok := questions[text]
			if !ok {
				continue
			}
			score, ok := scoreAnswer(info.setting, item["value"])
			if !ok {
				continue
			}
			if info.reverse {
				score = maxQuestionScore - score
			}
			sums[info.category] += score
			counts[info.category]++
		}

		start := ev.Timestamp()
		end := start + ev.Int64("duration")
		for category, n := range counts {
			records = append(records, feature.Record{
				"start":    start,
				"end":      end,
				"category": category,
				"score":    sums[category] / float64(n),
			})
		}
	}

	return records, len(raw.Data), nil
}

// surveyQuestions indexes every survey question declared on the participant's
// activities by its text, defaulting each question's category to the survey
// name it belongs to.
func surveyQuestions(ctx context.Context, s *feature.Session, req feature.Request) (map[string]questionInfo, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	activities, err := client.Activities(ctx, req.ID)
	if err != nil {
		if cerrors.Is(err, cerrors.KindNotFound) {
			activities = nil
		} else {
			return nil, err
		}
	}

	questions := make(map[string]questionInfo)
	for _, act := range activities {
		if act.Spec != "lamp.survey" {
			continue
		}
		for _, setting := range act.SurveySettings() {
			questions[setting.Text] = questionInfo{setting: setting, category: act.Name}
		}
	}

	applyCategoryOverrides(questions, req.Params["question_categories"])
	return questions, nil
}

// applyCategoryOverrides folds the "question_categories" param into the
// question index: {"<question text>": {"category": "...", "reverse_scoring": bool}}.
func applyCategoryOverrides(questions map[string]questionInfo, raw interface{}) {
	overrides, ok := raw.(map[string]interface{})
	if !ok {
		return
	}
	for text, v := range overrides {
		info, ok := questions[text]
		if !ok {
			continue
		}
		spec, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if category, ok := spec["category"].(string); ok && category != "" {
			info.category = category
		}
		if reverse, ok := spec["reverse_scoring"].(bool); ok {
			info.reverse = reverse
		}
		questions[text] = info
	}
}

// scoreAnswer maps one answer onto the 0..3 scale. Text questions and
// unparseable answers carry no score.
func scoreAnswer(setting lamp.ActivitySetting, value interface{}) (float64, bool) {
	switch setting.Type {
	case "likert":
		return parseFloatAnswer(value)
	case "boolean":
		switch strings.ToUpper(fmt.Sprint(value)) {
		case "NO", "FALSE":
			return 0, true
		case "YES", "TRUE":
			return maxQuestionScore, true
		}
		return 0, false
	case "list":
		if len(setting.Options) < 2 {
			return 0, false
		}
		answer := fmt.Sprint(value)
		for i, opt := range setting.Options {
			if opt == answer {
				return float64(i) * maxQuestionScore / float64(len(setting.Options)-1), true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

func parseFloatAnswer(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// sliceList normalizes the temporal_slices payload, which arrives as
// []interface{} of maps after any JSON round trip.
func sliceList(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
