package lamp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
)

// Client talks to the remote event store over HTTP. All calls are synchronous
// and carry the caller's context.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a client against serverAddress using access/secret key
// basic auth. serverAddress may omit the scheme; https is assumed.
func NewClient(serverAddress, accessKey, secretKey string, logger *zap.Logger) *Client {
	if !strings.Contains(serverAddress, "://") {
		serverAddress = "https://" + serverAddress
	}

	httpClient := resty.New().
		SetBaseURL(serverAddress).
		SetTimeout(60 * time.Second).
		SetBasicAuth(accessKey, secretKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

// SensorEvents lists sensor events of one origin for a participant, newest
// first, bounded to from ≤ timestamp ≤ to, at most limit rows.
func (c *Client) SensorEvents(ctx context.Context, participant, origin string, from, to int64, limit int) ([]SensorEvent, error) {
	var page sensorEventPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origin": origin,
			"_from":  fmt.Sprintf("%d", from),
			"to":     fmt.Sprintf("%d", to),
			"_limit": fmt.Sprintf("%d", limit),
		}).
		SetResult(&page).
		Get(fmt.Sprintf("/participant/%s/sensor_event", participant))
	if err := c.check(resp, err, "lamp.SensorEvents"); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// ActivityEvents lists completed activity events for a participant, newest
// first.
func (c *Client) ActivityEvents(ctx context.Context, participant string, from, to int64, limit int) ([]ActivityEvent, error) {
	var page activityEventPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"_from":  fmt.Sprintf("%d", from),
			"to":     fmt.Sprintf("%d", to),
			"_limit": fmt.Sprintf("%d", limit),
		}).
		SetResult(&page).
		Get(fmt.Sprintf("/participant/%s/activity_event", participant))
	if err := c.check(resp, err, "lamp.ActivityEvents"); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Activities lists the activity definitions visible to a participant.
func (c *Client) Activities(ctx context.Context, participant string) ([]Activity, error) {
	var page activityPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&page).
		Get(fmt.Sprintf("/participant/%s/activity", participant))
	if err := c.check(resp, err, "lamp.Activities"); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// AttachmentGet reads a per-participant key-value attachment into out.
// Returns a NotFound error when the key does not exist.
func (c *Client) AttachmentGet(ctx context.Context, participant, key string, out interface{}) error {
	var body attachmentBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/type/%s/attachment/%s", participant, key))
	if err := c.check(resp, err, "lamp.AttachmentGet"); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return cerrors.E("lamp.AttachmentGet", cerrors.KindBackend, "decode attachment", err)
	}
	return nil
}

// AttachmentSet writes a per-participant key-value attachment. The whole
// value is replaced in one call; last writer wins.
func (c *Client) AttachmentSet(ctx context.Context, participant, owner, key string, value interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("owner", owner).
		SetBody(value).
		Put(fmt.Sprintf("/type/%s/attachment/%s", participant, key))
	return c.check(resp, err, "lamp.AttachmentSet")
}

// AttachmentList lists attachment keys present on a participant.
func (c *Client) AttachmentList(ctx context.Context, participant string) ([]string, error) {
	var body attachmentListBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/type/%s/attachment", participant))
	if err := c.check(resp, err, "lamp.AttachmentList"); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// Studies lists the studies owned by a researcher.
func (c *Client) Studies(ctx context.Context, researcher string) ([]Study, error) {
	var page studyPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&page).
		Get(fmt.Sprintf("/researcher/%s/study", researcher))
	if err := c.check(resp, err, "lamp.Studies"); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Participants lists the participants enrolled in a study.
func (c *Client) Participants(ctx context.Context, study string) ([]Participant, error) {
	var page participantPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&page).
		Get(fmt.Sprintf("/study/%s/participant", study))
	if err := c.check(resp, err, "lamp.Participants"); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Parent resolves the parent set of an identifier. An empty map means the id
// sits at the top of the hierarchy.
func (c *Client) Parent(ctx context.Context, id string) (Parentage, error) {
	var body parentBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/type/%s/parent", id))
	if err := c.check(resp, err, "lamp.Parent"); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return Parentage{}, nil
	}
	return body.Data, nil
}

// check converts a transport error or an error status into a typed error.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return cerrors.E(op, cerrors.KindBackend, "request failed", err)
	}
	if resp.IsSuccess() {
		return nil
	}

	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	if resp.StatusCode() == http.StatusNotFound || strings.Contains(body.Error, "object-not-found") {
		return cerrors.E(op, cerrors.KindNotFound, "object not found", nil)
	}

	c.logger.Warn("backend returned error status",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("error", body.Error),
	)
	return cerrors.E(op, cerrors.KindBackend,
		fmt.Sprintf("status %d: %s", resp.StatusCode(), body.Error), nil)
}
