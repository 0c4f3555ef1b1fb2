// Package digest defines the contracts for the scheduled market-digest
// pipeline. The pipeline stages are external collaborators of the chat
// engine; only their interfaces and the orchestration over them live
// here, and the shipped generators are placeholders.
package digest

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrNotImplemented is returned by placeholder pipeline stages.
var ErrNotImplemented = errors.New("not implemented")

// MarketDatum is a normalized raw snapshot from a monitored source.
type MarketDatum struct {
	Source      string         `json:"source"`
	Category    string         `json:"category"`
	Payload     map[string]any `json:"payload"`
	RetrievedAt time.Time      `json:"retrieved_at"`
}

// Section groups insights for a market category.
type Section struct {
	Title        string   `json:"title"`
	BulletPoints []string `json:"bullet_points"`
}

// Payload is an LLM-generated digest ready for delivery.
type Payload struct {
	GeneratedAt    time.Time `json:"generated_at"`
	QuoteDate      time.Time `json:"quote_date"`
	Sections       []Section `json:"sections"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// DataSource pulls market snapshots from one upstream.
type DataSource interface {
	Pull(ctx context.Context) ([]MarketDatum, error)
}

// Generator condenses snapshots into a digest.
type Generator interface {
	BuildDigest(ctx context.Context, snapshots []MarketDatum) (Payload, error)
}

// Repository stores generated digests.
type Repository interface {
	Save(ctx context.Context, digest Payload) error
	History(ctx context.Context, limit int) ([]Payload, error)
}

// Notifier delivers a digest to its audience.
type Notifier interface {
	SendDigest(ctx context.Context, digest Payload) error
}

// Orchestrator runs the digest workflow: collect, summarize, persist,
// notify.
type Orchestrator struct {
	sources    []DataSource
	generator  Generator
	repository Repository
	notifier   Notifier
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(sources []DataSource, gen Generator, repo Repository, notifier Notifier) *Orchestrator {
	return &Orchestrator{sources: sources, generator: gen, repository: repo, notifier: notifier}
}

// RunCycle executes one full digest cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) (Payload, error) {
	log.Printf("[digest] starting data collection cycle")
	var snapshots []MarketDatum
	for _, src := range o.sources {
		pulled, err := src.Pull(ctx)
		if err != nil {
			return Payload{}, err
		}
		snapshots = append(snapshots, pulled...)
	}
	log.Printf("[digest] collected %d market records", len(snapshots))

	digest, err := o.generator.BuildDigest(ctx, snapshots)
	if err != nil {
		return Payload{}, err
	}
	if err := o.repository.Save(ctx, digest); err != nil {
		return Payload{}, err
	}
	if err := o.notifier.SendDigest(ctx, digest); err != nil {
		return Payload{}, err
	}
	log.Printf("[digest] digest dispatched")
	return digest, nil
}

// UnimplementedGenerator is the placeholder digest generator.
type UnimplementedGenerator struct{}

func (UnimplementedGenerator) BuildDigest(ctx context.Context, snapshots []MarketDatum) (Payload, error) {
	return Payload{}, ErrNotImplemented
}
