// Package classify calls the external AI service that triages emails. The
// call is bounded by a timeout and degrades to a fallback result when the
// service is unconfigured or failing; classification never hard-fails a
// request.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"

	"github.com/raids-lab/teamspace/pkg/config"
	"github.com/raids-lab/teamspace/pkg/logutils"
)

const (
	// CategoryUnclassified is the fallback when the service is down or not
	// configured.
	CategoryUnclassified = "unclassified"

	defaultTimeout = 10 * time.Second
)

type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type Client struct {
	http *req.Client
	url  string
}

func NewClient() *Client {
	conf := config.GetConfig()
	if conf.Classifier.URL == "" {
		logutils.Log.Warn("classifier not configured, emails will stay unclassified")
		return &Client{}
	}
	timeout := defaultTimeout
	if conf.Classifier.TimeoutSeconds > 0 {
		timeout = time.Duration(conf.Classifier.TimeoutSeconds) * time.Second
	}
	client := req.C().
		SetTimeout(timeout).
		SetCommonBearerAuthToken(conf.Classifier.APIKey)
	return &Client{http: client, url: conf.Classifier.URL}
}

func (c *Client) Enabled() bool {
	return c.http != nil
}

// Fallback is the degraded result used when no classification is possible.
func Fallback(reason string) *Result {
	return &Result{Category: CategoryUnclassified, Confidence: 0, Reasoning: reason}
}

type classifyReq struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Classify asks the external service for a category. Any failure yields the
// fallback result, never an error to the caller.
func (c *Client) Classify(ctx context.Context, subject, body string) *Result {
	if !c.Enabled() {
		return Fallback("classifier not configured")
	}

	var result Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBodyJsonMarshal(classifyReq{Subject: subject, Body: body}).
		SetSuccessResult(&result).
		Post(c.url)
	if err != nil {
		logutils.Log.Warnf("classifier call failed: %v", err)
		return Fallback("classifier unreachable")
	}
	if !resp.IsSuccessState() {
		logutils.Log.Warnf("classifier returned status %d", resp.StatusCode)
		return Fallback(fmt.Sprintf("classifier returned status %d", resp.StatusCode))
	}
	if result.Category == "" {
		return Fallback("classifier returned an empty category")
	}
	return &result
}
