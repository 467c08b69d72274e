package worker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doccompare/internal/config"
)

func readyMessage(t *testing.T, payload PageReadyPayload) *nsq.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)
	return &nsq.Message{Body: body}
}

func TestCompletionConsumer_LastPageCompletesDocument(t *testing.T) {
	pages := new(MockPageTracker)
	docs := new(MockDocumentTracker)
	consumer := NewCompletionConsumer(pages, docs, new(MockDeadLetterSink))

	pages.On("MarkPageReady", mock.Anything, "doc-1", 5).Return(true, nil)
	docs.On("GetPageCount", mock.Anything, "doc-1").Return(5, nil)
	pages.On("CountReadyPages", mock.Anything, "doc-1").Return(5, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-1", "completed").Return(nil)

	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1", PageNo: pageRef(5)})
	assert.NoError(t, consumer.HandleMessage(msg))
	docs.AssertExpectations(t)
}

func TestCompletionConsumer_PageZeroCounted(t *testing.T) {
	pages := new(MockPageTracker)
	docs := new(MockDocumentTracker)
	dl := new(MockDeadLetterSink)
	consumer := NewCompletionConsumer(pages, docs, dl)

	pages.On("MarkPageReady", mock.Anything, "doc-1", 0).Return(true, nil)
	docs.On("GetPageCount", mock.Anything, "doc-1").Return(3, nil)
	pages.On("CountReadyPages", mock.Anything, "doc-1").Return(1, nil)

	// The splitter numbers pages from 0; the first page's signal must count
	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1", PageNo: pageRef(0)})
	assert.NoError(t, consumer.HandleMessage(msg))

	dl.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pages.AssertExpectations(t)
}

func TestCompletionConsumer_AbsentPageNoDeadLettered(t *testing.T) {
	pages := new(MockPageTracker)
	dl := new(MockDeadLetterSink)
	consumer := NewCompletionConsumer(pages, new(MockDocumentTracker), dl)

	dl.On("Save", mock.Anything, config.TopicPageReady, mock.Anything, "missing doc_id or page_no").Return(nil)

	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1"})
	assert.NoError(t, consumer.HandleMessage(msg))

	dl.AssertExpectations(t)
	pages.AssertNotCalled(t, "MarkPageReady", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompletionConsumer_NotAllPagesReady(t *testing.T) {
	pages := new(MockPageTracker)
	docs := new(MockDocumentTracker)
	consumer := NewCompletionConsumer(pages, docs, new(MockDeadLetterSink))

	pages.On("MarkPageReady", mock.Anything, "doc-1", 2).Return(true, nil)
	docs.On("GetPageCount", mock.Anything, "doc-1").Return(5, nil)
	pages.On("CountReadyPages", mock.Anything, "doc-1").Return(2, nil)

	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1", PageNo: pageRef(2)})
	assert.NoError(t, consumer.HandleMessage(msg))
	docs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompletionConsumer_RedeliveredSignalIgnored(t *testing.T) {
	pages := new(MockPageTracker)
	docs := new(MockDocumentTracker)
	consumer := NewCompletionConsumer(pages, docs, new(MockDeadLetterSink))

	pages.On("MarkPageReady", mock.Anything, "doc-1", 5).Return(false, nil)

	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1", PageNo: pageRef(5)})
	assert.NoError(t, consumer.HandleMessage(msg))

	// A duplicate signal never re-counts or re-completes
	docs.AssertNotCalled(t, "GetPageCount", mock.Anything, mock.Anything)
	docs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompletionConsumer_MalformedMessageDeadLettered(t *testing.T) {
	dl := new(MockDeadLetterSink)
	consumer := NewCompletionConsumer(new(MockPageTracker), new(MockDocumentTracker), dl)

	body := []byte("{broken")
	dl.On("Save", mock.Anything, config.TopicPageReady, body, mock.Anything).Return(nil)

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: body}))
	dl.AssertExpectations(t)
}

func TestCompletionConsumer_TrackerErrorRequeues(t *testing.T) {
	pages := new(MockPageTracker)
	consumer := NewCompletionConsumer(pages, new(MockDocumentTracker), new(MockDeadLetterSink))

	pages.On("MarkPageReady", mock.Anything, "doc-1", 1).Return(false, errors.New("db down"))

	msg := readyMessage(t, PageReadyPayload{DocID: "doc-1", PageNo: pageRef(1)})
	assert.Error(t, consumer.HandleMessage(msg))
}

func TestCompletionConsumer_EmptyBodyAcked(t *testing.T) {
	consumer := NewCompletionConsumer(new(MockPageTracker), new(MockDocumentTracker), new(MockDeadLetterSink))
	assert.NoError(t, consumer.HandleMessage(&nsq.Message{}))
}
