package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/docflow/apiserver/internal/testutils"
	"github.com/docflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	keys     []string
	values   []any
	metadata map[string]string
	err      error
}

func (f *fakeArchive) PutJSON(_ context.Context, key string, v any, metadata map[string]string) error {
	f.keys = append(f.keys, key)
	f.values = append(f.values, v)
	f.metadata = metadata
	return f.err
}

type fakePublisher struct {
	channel string
	payload []byte
	attrs   map[string]string
	err     error
}

func (f *fakePublisher) PublishJSON(_ context.Context, channel string, v any, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	f.channel = channel
	f.payload = data
	f.attrs = attrs
	return "m-1", nil
}

func sentDocument() types.Document {
	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return types.Document{
		ID:        7,
		Code:      1001,
		Subject:   "Тема",
		Sender:    "Иванов",
		Receiver:  "Петров",
		Message:   "текст",
		Status:    types.StatusSent,
		CreatedAt: sentAt.Add(-time.Hour),
		UpdatedAt: sentAt,
	}
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "documents/1001.json", ArchiveKey(1001))
	assert.Equal(t, "documents/-5.json", ArchiveKey(-5))
}

func TestDispatcher_Deliver(t *testing.T) {
	archive := &fakeArchive{}
	publisher := &fakePublisher{}
	d := NewDispatcher(archive, publisher, "documents.sent", testutils.TestLogger(t))
	assert.True(t, d.Enabled())

	require.NoError(t, d.Deliver(context.Background(), sentDocument()))

	assert.Equal(t, []string{"documents/1001.json"}, archive.keys)
	assert.Equal(t, "7", archive.metadata["document_id"])
	assert.Equal(t, "documents.sent", publisher.channel)
	assert.Equal(t, map[string]string{"document_id": "7", "code": "1001"}, publisher.attrs)
	assert.JSONEq(t, `{
		"id": 7,
		"code": 1001,
		"subject": "Тема",
		"sender": "Иванов",
		"receiver": "Петров",
		"sent_at": "2024-05-01T12:00:00Z"
	}`, string(publisher.payload))
}

func TestDispatcher_JoinsFailures(t *testing.T) {
	archiveErr := errors.New("bucket unavailable")
	publishErr := errors.New("broker unavailable")
	d := NewDispatcher(&fakeArchive{err: archiveErr}, &fakePublisher{err: publishErr}, "documents.sent", nil)

	err := d.Deliver(context.Background(), sentDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, archiveErr)
	assert.ErrorIs(t, err, publishErr)
}

func TestDispatcher_PublishesEvenWhenArchiveFails(t *testing.T) {
	publisher := &fakePublisher{}
	d := NewDispatcher(&fakeArchive{err: errors.New("down")}, publisher, "documents.sent", nil)

	err := d.Deliver(context.Background(), sentDocument())
	assert.Error(t, err)
	assert.NotEmpty(t, publisher.payload)
}

func TestDispatcher_Disabled(t *testing.T) {
	d := NewDispatcher(nil, nil, "documents.sent", nil)
	assert.False(t, d.Enabled())
	assert.NoError(t, d.Deliver(context.Background(), sentDocument()))
}
