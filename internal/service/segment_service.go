package service

import (
	"context"
	"fmt"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/internal/segmenter"

	"github.com/google/uuid"
)

type SegmentService interface {
	// CreateVersionSegments splits text and stores every unit in one batch.
	// A version's segments are written once; a second call returns ErrSegmentsExist.
	CreateVersionSegments(ctx context.Context, versionID uuid.UUID, text string) ([]model.Segment, error)
	ListSegments(ctx context.Context, versionID uuid.UUID) ([]model.Segment, error)
}

type segmentService struct {
	segments repository.SegmentRepository
	versions repository.VersionRepository
	tx       repository.TransactionManager
}

func NewSegmentService(segments repository.SegmentRepository, versions repository.VersionRepository, tx repository.TransactionManager) SegmentService {
	return &segmentService{segments: segments, versions: versions, tx: tx}
}

func (s *segmentService) CreateVersionSegments(ctx context.Context, versionID uuid.UUID, text string) ([]model.Segment, error) {
	units := segmenter.Split(text)
	rows := make([]model.Segment, 0, len(units))
	for _, u := range units {
		rows = append(rows, model.Segment{
			VersionID:  versionID,
			Seq:        u.Seq,
			Key:        u.Key,
			SourceText: u.Text,
		})
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.segments.CountByVersion(txCtx, versionID)
		if err != nil {
			return fmt.Errorf("failed to count segments: %w", err)
		}
		if n > 0 {
			return ErrSegmentsExist
		}
		if err := s.segments.CreateBatch(txCtx, rows); err != nil {
			if repository.IsDuplicate(err) {
				return ErrSegmentsExist
			}
			return fmt.Errorf("failed to create segments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *segmentService) ListSegments(ctx context.Context, versionID uuid.UUID) ([]model.Segment, error) {
	if _, err := s.versions.FindByID(ctx, versionID); err != nil {
		return nil, lookupErr("version", err)
	}
	segs, err := s.segments.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segs, nil
}
