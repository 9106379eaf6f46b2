package sourcefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/repository"
)

// Service handles source file operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new source file service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RegisterRequest defines file registration inputs. Headers are raw header
// cells in sheet order.
type RegisterRequest struct {
	ID      string
	Name    string
	Headers []string
}

// Register records a file's current header order and reports the order it
// replaced.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	if strings.TrimSpace(req.ID) == "" || len(req.Headers) == 0 {
		return nil, ErrInvalidInput
	}
	headers := site.NewSchema(req.Headers).Columns
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = req.ID
	}

	existing, err := s.repo.Get(ctx, req.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("getting source file: %w", err)
	}

	now := time.Now().UTC()
	if existing == nil {
		f := &File{ID: req.ID, Name: name, Headers: headers, Tick: 1, CreatedAt: now, UpdatedAt: now}
		if err := s.repo.Create(ctx, f); err != nil {
			return nil, fmt.Errorf("creating source file: %w", err)
		}
		return &Registration{File: f, Created: true}, nil
	}

	reg := &Registration{File: existing, PreviousHeaders: existing.Headers}
	reg.HeadersChanged = !slices.Equal(existing.Headers, headers)
	existing.Name = name
	existing.Headers = headers
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("updating source file: %w", err)
	}
	tick, err := s.repo.IncrementTick(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("incrementing source file tick: %w", err)
	}
	existing.Tick = tick
	if reg.HeadersChanged {
		s.logger.Info("source file header order changed", "file_id", existing.ID, "tick", tick)
	}
	return reg, nil
}

// Get fetches a file by ID.
func (s *Service) Get(ctx context.Context, id string) (*File, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("getting source file: %w", err)
	}
	return f, nil
}

// List returns all registered files.
func (s *Service) List(ctx context.Context) ([]File, error) {
	return s.repo.List(ctx)
}
