// Package service keeps book rating aggregates consistent with the live
// comments attached to them. Every mutation runs in one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/metrics"
	"github.com/Clark-Hu/book-review-api/internal/repository"
)

// TxRunner opens a transaction, runs fn and commits unless fn fails.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service is the transactional mutation orchestrator.
type Service struct {
	tx      TxRunner
	repo    *repository.Repository
	kind    domain.Kind
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires the orchestrator. m may be nil.
func New(tx TxRunner, repo *repository.Repository, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	kind := repo.Comments.Kind()
	return &Service{
		tx:      tx,
		repo:    repo,
		kind:    kind,
		metrics: m,
		logger:  logger.With("component", "service", "kind", kind.Name),
	}
}

// mutate runs fn in a transaction with repositories bound to it, classifies
// the error and records the outcome.
func (s *Service) mutate(ctx context.Context, op string, fn func(repo *repository.Repository) error) error {
	started := time.Now()
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(s.repo.WithTx(tx))
	})
	err = classify(err, s.kind)
	s.metrics.Observe(op, resultLabel(err), started)
	if err != nil && resultLabel(err) == "internal" {
		s.logger.Error("mutation failed", "op", op, "error", err)
	}
	return err
}

// failed records an operation rejected before any transaction was opened.
func (s *Service) failed(op string, err error) error {
	s.metrics.Observe(op, resultLabel(err), time.Now())
	return err
}

func notFoundAs(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
