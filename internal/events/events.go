// Package events defines the library change events and the publishers that
// fan them out to live clients and an optional NATS bus.
package events

import (
	"context"
	"errors"
	"time"
)

// Event topic constants
const (
	TopicLibraryUpdated = "medialib.library.updated"
	TopicLibraryDeleted = "medialib.library.deleted"

	// TopicLibraryAll matches every library topic on NATS.
	TopicLibraryAll = "medialib.library.>"
)

// Event types carried in LibraryEvent.Type.
const (
	TypeLibraryUpdate = "library.update"
	TypeLibraryDelete = "library.delete"
)

type LibraryEvent struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	MediaID  int64     `json:"media_id"`
	Title    string    `json:"title,omitempty"`
	Status   string    `json:"status,omitempty"`
	Score    *int      `json:"score,omitempty"`
	Progress int       `json:"progress,omitempty"`
	At       time.Time `json:"at"`
}

// Topic returns the NATS subject for the event type.
func (e LibraryEvent) Topic() string {
	if e.Type == TypeLibraryDelete {
		return TopicLibraryDeleted
	}
	return TopicLibraryUpdated
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
