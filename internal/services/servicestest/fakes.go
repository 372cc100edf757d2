package servicestest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Generator returns a canned response and records prompts. When Delay is
// set it waits for the delay or for ctx, whichever ends first.
type Generator struct {
	mu       sync.Mutex
	Response string
	Err      error
	Delay    time.Duration
	prompts  []string
}

func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Event is a message captured by Publisher.
type Event struct {
	Channel string
	Payload json.RawMessage
}

// Publisher records published events. Err makes every publish fail.
type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []Event
}

func (p *Publisher) PublishJSON(ctx context.Context, channel string, event any) error {
	if p.Err != nil {
		return p.Err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Channel: channel, Payload: data})
	return nil
}

func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Archive keeps uploaded text objects in memory.
type Archive struct {
	mu      sync.Mutex
	Err     error
	Objects map[string]string
}

func (a *Archive) PutText(ctx context.Context, key, text string) error {
	if a.Err != nil {
		return a.Err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Objects == nil {
		a.Objects = map[string]string{}
	}
	if _, exists := a.Objects[key]; exists {
		return errors.New("object already exists")
	}
	a.Objects[key] = text
	return nil
}
