package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

// WorkflowNotifier posts payment events to an internal automation workflow
// endpoint. Deliveries are best effort and never affect the caller.
type WorkflowNotifier struct {
	url    string
	client *http.Client
	logger logrus.FieldLogger
}

func NewWorkflowNotifier(url string, timeout time.Duration) *WorkflowNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WorkflowNotifier{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("workflow-notifier"),
	}
}

func (n *WorkflowNotifier) Enabled() bool {
	return n.url != ""
}

func (n *WorkflowNotifier) Notify(ctx context.Context, event types.EventType, payload map[string]interface{}) {
	if !n.Enabled() {
		return
	}

	body, err := encodeEnvelope(event, payload)
	if err != nil {
		n.logger.WithError(err).WithField("event", event).Warn("Failed to encode workflow notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).WithField("event", event).Warn("Failed to build workflow notification")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.WithError(err).WithField("event", event).Warn("Workflow notification failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.WithFields(logrus.Fields{
			"event":  event,
			"status": resp.StatusCode,
		}).Warn("Workflow endpoint rejected notification")
	}
}
