package lamp

import "encoding/json"

// SensorEvent is one raw sensor sample as stored by the backend. Timestamp is
// milliseconds since the epoch; Data is the device payload, whose schema
// varies by sensor kind and backend version.
type SensorEvent struct {
	Timestamp int64                  `json:"timestamp"`
	Sensor    string                 `json:"sensor,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// TemporalSlice is one question answer or game item within an activity event.
type TemporalSlice struct {
	Item     interface{} `json:"item"`
	Value    interface{} `json:"value"`
	Type     interface{} `json:"type"`
	Level    interface{} `json:"level,omitempty"`
	Duration float64     `json:"duration"`
}

// ActivityEvent is one completed activity (survey or cognitive game).
type ActivityEvent struct {
	Timestamp      int64                  `json:"timestamp"`
	Duration       int64                  `json:"duration"`
	Activity       string                 `json:"activity"`
	StaticData     map[string]interface{} `json:"static_data"`
	TemporalSlices []TemporalSlice        `json:"temporal_slices"`
}

// ActivitySetting describes one survey question as declared on the activity.
type ActivitySetting struct {
	Text    string   `json:"text"`
	Type    string   `json:"type"` // "likert", "boolean", "list", "text"
	Options []string `json:"options,omitempty"`
}

// Activity is an activity definition owned by a participant's study.
type Activity struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Spec     string          `json:"spec"`
	Settings json.RawMessage `json:"settings"`
}

// SurveySettings decodes the settings payload of a survey activity. Non-survey
// activities store settings in other shapes; decoding failures yield nil.
func (a *Activity) SurveySettings() []ActivitySetting {
	var settings []ActivitySetting
	if err := json.Unmarshal(a.Settings, &settings); err != nil {
		return nil
	}
	return settings
}

// Study is one study under a researcher.
type Study struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant is one enrolled participant.
type Participant struct {
	ID string `json:"id"`
}

// Parentage maps hierarchy level name ("Researcher", "Study") to parent id.
type Parentage map[string]string

type sensorEventPage struct {
	Data []SensorEvent `json:"data"`
}

type activityEventPage struct {
	Data []ActivityEvent `json:"data"`
}

type activityPage struct {
	Data []Activity `json:"data"`
}

type studyPage struct {
	Data []Study `json:"data"`
}

type participantPage struct {
	Data []Participant `json:"data"`
}

type attachmentBody struct {
	Data json.RawMessage `json:"data"`
}

type attachmentListBody struct {
	Data []string `json:"data"`
}

type parentBody struct {
	Data Parentage `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}
