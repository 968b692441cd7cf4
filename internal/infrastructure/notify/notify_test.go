package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/metrics"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_Notify(t *testing.T) {
	writer := &fakeWriter{}
	n := newKafkaNotifier(writer, zerolog.Nop())
	n.now = func() time.Time { return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) }

	err := n.Notify(context.Background(), domain.Notification{
		AccountID: "acc-1",
		UserID:    "user-1",
		Message:   "Your orders import for Corner Store (Etsy) failed.",
		Link:      "/shops/shop-1/external_imports",
		LinkText:  "View imports",
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "acc-1", string(msg.Key))
	var decoded domain.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, "View imports", decoded.LinkText)
	assert.Equal(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), decoded.CreatedAt)
}

func TestKafkaNotifier_WrapsWriteErrors(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("broker unavailable")}, zerolog.Nop())

	err := n.Notify(context.Background(), domain.Notification{AccountID: "acc-1"})
	assert.ErrorContains(t, err, "failed to publish notification")
}

func TestLogErrorTracker_Report(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.NewImportMetrics(prometheus.NewRegistry())
	tracker := NewLogErrorTracker(zerolog.New(&buf), m)

	err := domain.NewImportError(domain.KindTransientUpstream, domain.ProviderSquare, "search_orders", domain.WithStatus(502))
	tracker.Report(context.Background(), err, map[string]string{"provider": "square", "shop_id": "shop-1"})

	assert.Contains(t, buf.String(), `"kind":"transient_upstream"`)
	assert.Contains(t, buf.String(), `"shop_id":"shop-1"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("square", "transient_upstream")))
}
