// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package servicelink wires the technician marketplace together: the
// datastore, the embedding provider, and the search, ingestion, reembedding
// and booking services built on them.
package servicelink

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/fallback"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/hashing"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/openai"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/vertex"
	"github.com/MohanGuptaKoduru/ServiceLink/assistant"
	"github.com/MohanGuptaKoduru/ServiceLink/booking"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/ingestion"
	"github.com/MohanGuptaKoduru/ServiceLink/reembed"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
	"github.com/MohanGuptaKoduru/ServiceLink/seed"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
	"github.com/MohanGuptaKoduru/ServiceLink/storage/badger"
)

type Marketplace struct {
	repos    *badger.Repositories
	embedder ai.Embedder
	aiConfig *ai.Config
	logger   *slog.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Marketplace.
type Option func(*options)

type options struct {
	aiConfig       *ai.Config
	embedder       ai.Embedder
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithAIConfig selects the embedding provider and assistant model.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithEmbedder uses embedder instead of building one from the AI config.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeterProvider sets where metrics are recorded. Default: the otel global.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider sets where spans are recorded. Default: the otel global.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// Open opens the datastore at path and builds the embedder. An empty path
// opens an in-memory datastore.
func Open(ctx context.Context, path string, opts ...Option) (*Marketplace, error) {
	options := &options{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.meterProvider == nil {
		options.meterProvider = otel.GetMeterProvider()
	}
	if options.tracerProvider == nil {
		options.tracerProvider = otel.GetTracerProvider()
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = NewEmbedder(ctx, options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	var repos *badger.Repositories
	var err error
	if path == "" {
		repos, err = badger.NewMemoryRepositories()
	} else {
		repos, err = badger.NewRepositories(path)
	}
	if err != nil {
		return nil, err
	}

	return &Marketplace{
		repos:          repos,
		embedder:       embedder,
		aiConfig:       options.aiConfig,
		logger:         options.logger,
		meterProvider:  options.meterProvider,
		tracerProvider: options.tracerProvider,
	}, nil
}

// NewEmbedder builds the primary embedder for cfg.Provider.
func NewEmbedder(ctx context.Context, cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderVertex:
		return vertex.NewEmbedder(ctx, cfg)
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(cfg)
	default:
		return hashing.NewEmbedder(cfg.Dimensions)
	}
}

func (m *Marketplace) Close() error {
	if err := m.repos.Close(); err != nil {
		m.logger.Error("error closing repositories", "err", err)
		return err
	}
	return nil
}

func (m *Marketplace) Technicians() storage.TechnicianRepository {
	return m.repos.Technicians
}

func (m *Marketplace) Bookings() storage.BookingRepository {
	return m.repos.Bookings
}

// Embedder returns the primary embedder, without fallback.
func (m *Marketplace) Embedder() ai.Embedder {
	return m.embedder
}

// ModelID names the embedding space stored vectors belong to.
func (m *Marketplace) ModelID() string {
	if m.aiConfig.Dimensions != m.embedder.Dimensions() {
		return fmt.Sprintf("%s/%d", m.aiConfig.ModelID(), m.embedder.Dimensions())
	}
	return m.aiConfig.ModelID()
}

// NewSearcher creates a searcher whose embedder substitutes random vectors
// when the provider fails. Caller options override the defaults.
func (m *Marketplace) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	embedder := fallback.New(m.embedder,
		fallback.WithSeed(m.aiConfig.FallbackSeed),
		fallback.WithTimeout(m.aiConfig.Timeout),
		fallback.WithLogger(m.logger),
		fallback.WithMeterProvider(m.meterProvider),
		fallback.WithTracerProvider(m.tracerProvider))

	defaults := []search.Option{
		search.WithModel(m.ModelID()),
		search.WithLogger(m.logger),
		search.WithMeterProvider(m.meterProvider),
		search.WithTracerProvider(m.tracerProvider),
	}
	return search.NewSearcher(m.repos.Technicians, embedder, append(defaults, opts...)...)
}

// NewIngestionPipeline creates a pipeline that embeds with the primary embedder.
func (m *Marketplace) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithModel(m.ModelID()),
		ingestion.WithLogger(m.logger),
	}
	return ingestion.NewPipeline(m.repos.Technicians, m.embedder, append(defaults, opts...)...)
}

// NewReembedder creates a reembedder writing progress to w.
// config.Model is set to this marketplace's model.
func (m *Marketplace) NewReembedder(config *reembed.Config, w io.Writer) *reembed.Reembedder {
	if config == nil {
		config = reembed.DefaultConfig()
	}
	config.Model = m.ModelID()
	return reembed.NewReembedder(m.repos.Technicians, m.embedder, config, w)
}

func (m *Marketplace) NewBookingService() (*booking.Service, error) {
	return booking.NewService(m.repos.Technicians, m.repos.Bookings, booking.WithLogger(m.logger))
}

// NewAssistant creates the help chat on the configured OpenAI-compatible chat model.
func (m *Marketplace) NewAssistant(opts ...assistant.Option) (*assistant.Assistant, error) {
	model, err := openai.NewChatModel(m.aiConfig)
	if err != nil {
		return nil, err
	}
	return assistant.New(model, append([]assistant.Option{assistant.WithLogger(m.logger)}, opts...)...)
}

// Seed ingests the technicians not already stored, matched by name and
// email, and waits for their embeddings. It returns the records added.
func (m *Marketplace) Seed(ctx context.Context, technicians []*core.Technician, opts ...ingestion.Option) ([]*core.Technician, error) {
	existing, err := m.repos.Technicians.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	fresh := seed.Unseen(existing, technicians)
	if len(fresh) == 0 {
		return nil, nil
	}

	pipeline, err := m.NewIngestionPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	added, err := pipeline.Ingest(ctx, fresh...)
	if err != nil {
		return nil, err
	}
	pipeline.Wait()

	embedded, failed := pipeline.Stats()
	m.logger.Info("seeded technicians", "added", len(added), "embedded", embedded, "failed", failed)
	return added, nil
}
