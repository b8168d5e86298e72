package server

import (
	"context"
	"testing"
	"time"

	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
)

func TestRealtimeDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, subject.KindPost, "post-1")
	defer cleanup()

	event := reactions.Event{
		Kind:       subject.KindPost,
		SubjectID:  "post-1",
		Outcome:    reactions.OutcomeLiked,
		Count:      3,
		OccurredAt: time.Now().UTC(),
	}
	if err := dispatcher.PublishReaction(context.Background(), event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	select {
	case received := <-stream:
		if received.Outcome != reactions.OutcomeLiked {
			t.Fatalf("expected outcome %s, got %s", reactions.OutcomeLiked, received.Outcome)
		}
		if received.Count != 3 {
			t.Fatalf("expected count 3, got %d", received.Count)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime event within deadline")
	}
}

func TestRealtimeDispatcherIsolatedBySubject(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postStream, cleanup := dispatcher.Subscribe(ctx, subject.KindPost, "shared-id")
	defer cleanup()

	projectStream, projectCleanup := dispatcher.Subscribe(ctx, subject.KindProject, "shared-id")
	defer projectCleanup()

	_ = dispatcher.PublishReaction(context.Background(), reactions.Event{
		Kind:      subject.KindProject,
		SubjectID: "shared-id",
		Outcome:   reactions.OutcomeRemoved,
	})

	select {
	case <-postStream:
		t.Fatal("did not expect a project event on the post stream")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case event := <-projectStream:
		if event.Kind != subject.KindProject {
			t.Fatalf("expected project event, received %s", event.Kind)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime event for subscribed project")
	}
}

func TestRealtimeDispatcherUnsubscribesOnCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = dispatcher.Subscribe(ctx, subject.KindPost, "post-9")
	if dispatcher.subscriberCount(subject.KindPost, "post-9") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.subscriberCount(subject.KindPost, "post-9") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRealtimeDispatcherRejectsUnknownKind(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	stream, cleanup := dispatcher.Subscribe(context.Background(), subject.Kind("album"), "x")
	defer cleanup()
	if _, open := <-stream; open {
		t.Fatal("expected closed stream for unknown kind")
	}
}
