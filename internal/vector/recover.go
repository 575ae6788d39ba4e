package vector

import (
	"context"
	"iter"

	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/metrics"
	"github.com/hyperjump/vexus/internal/storage"
	"go.uber.org/zap"
)

// RecoverResult summarises a bulk recovery.
type RecoverResult struct {
	Inserted int `json:"inserted"`
	// Skipped counts rows whose byte length is not dim*4.
	Skipped int `json:"skipped"`
	// Failed counts rows that could not be read or that the engine rejected.
	Failed int `json:"failed"`
}

// Recover folds rows into the store under a single write lock, applying the
// growth policy per row. Rows of the wrong width are skipped; unreadable or
// rejected rows are counted as failed. Only cancellation of ctx or an
// unusable store stops the fold early; the partial result is returned.
func (s *Store) Recover(ctx context.Context, rows iter.Seq2[storage.Row, error]) (RecoverResult, error) {
	var res RecoverResult
	expected := s.dim * codec.FloatSize
	consumed := false
	err := s.write(func() error {
		consumed = true
		for row, err := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err != nil {
				res.Failed++
				s.logger.Warn("recovery row unreadable", zap.Error(err))
				continue
			}
			if len(row.Vector) != expected {
				res.Skipped++
				continue
			}
			vec, err := codec.DecodeVector("vector", row.Vector, s.dim)
			if err != nil {
				res.Skipped++
				continue
			}
			s.grow(1)
			if err := s.engine.Add(uint64(row.ID), vec); err != nil {
				res.Failed++
				s.logger.Debug("recovery row rejected", zap.Int64("id", row.ID), zap.Error(err))
				continue
			}
			res.Inserted++
		}
		return nil
	})
	if !consumed {
		// Release the cursor behind rows.
		for range rows {
			break
		}
	}

	metrics.RecoveryRowsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.RecoveryRowsTotal.WithLabelValues("skipped").Add(float64(res.Skipped))
	metrics.RecoveryRowsTotal.WithLabelValues("failed").Add(float64(res.Failed))
	if res.Skipped > 0 {
		s.logger.Warn("skipped vectors with mismatched dimensions",
			zap.Int("skipped", res.Skipped),
			zap.Int("expected_bytes", expected))
	}
	s.logger.Info("recovery finished",
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, err
}

// RecoverFrom streams q out of src and folds it into the store.
func (s *Store) RecoverFrom(ctx context.Context, src storage.Source, q storage.Query) (RecoverResult, error) {
	rows, err := src.Rows(ctx, q)
	if err != nil {
		return RecoverResult{}, err
	}
	return s.Recover(ctx, rows)
}
