package notify_test

import (
	"context"
	"testing"

	"modboard/backend/internal/models"
	"modboard/backend/internal/notify"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// TestRenderMessage verifies template rendering and its fallbacks.
func TestRenderMessage(t *testing.T) {
	msg := notify.RenderMessage(models.NotifReward, []string{"5"})
	assert.Equal(t, "Thank you for your report. You received 5 coins.", msg)

	msg = notify.RenderMessage(models.NotifWarning, nil)
	assert.Contains(t, msg, "moderation warning")

	// Unknown templates fall back to the template name.
	assert.Equal(t, "something_else", notify.RenderMessage("something_else", nil))

	// A vars/placeholder mismatch returns the raw template text instead of
	// a %!s artifact.
	msg = notify.RenderMessage(models.NotifFreeze, nil)
	assert.NotContains(t, msg, "%!")
}

// TestLogNotifier_NeverFails: log-only delivery cannot fail a dispatch.
func TestLogNotifier_NeverFails(t *testing.T) {
	n := &notify.LogNotifier{Log: logrus.New()}
	err := n.Send(context.Background(), "u1", models.NotifRejected, nil)
	assert.NoError(t, err)
}
