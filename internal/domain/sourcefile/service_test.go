package sourcefile_test

import (
	"context"
	"testing"

	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/repository"
	"github.com/rpggio/siteflow/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSourceFileService_RegisterCreates(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SourceFileRepository{}
	repo.On("Get", ctx, "f1").Return((*sourcefile.File)(nil), repository.ErrNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*sourcefile.File")).Return(nil)

	svc := sourcefile.NewService(repo, nil)
	reg, err := svc.Register(ctx, sourcefile.RegisterRequest{ID: "f1", Headers: []string{"Site Code", "Device Type"}})
	require.NoError(t, err)
	require.True(t, reg.Created)
	require.False(t, reg.HeadersChanged)
	require.Equal(t, "f1", reg.File.Name)
	require.Equal(t, []string{"site_code", "device_type"}, reg.File.Headers)
}

func TestSourceFileService_RegisterDetectsReorder(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SourceFileRepository{}
	repo.On("Get", ctx, "f1").Return(&sourcefile.File{ID: "f1", Name: "june.xlsx", Headers: []string{"site_code", "device_type"}, Tick: 1}, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*sourcefile.File")).Return(nil)
	repo.On("IncrementTick", ctx, "f1").Return(int64(2), nil)

	svc := sourcefile.NewService(repo, nil)
	reg, err := svc.Register(ctx, sourcefile.RegisterRequest{ID: "f1", Name: "june.xlsx", Headers: []string{"Device Type", "Site Code"}})
	require.NoError(t, err)
	require.False(t, reg.Created)
	require.True(t, reg.HeadersChanged)
	require.Equal(t, []string{"site_code", "device_type"}, reg.PreviousHeaders)
	require.Equal(t, []string{"device_type", "site_code"}, reg.File.Headers)
	require.Equal(t, int64(2), reg.File.Tick)
}

func TestSourceFileService_RegisterValidation(t *testing.T) {
	svc := sourcefile.NewService(&mocks.SourceFileRepository{}, nil)
	_, err := svc.Register(context.Background(), sourcefile.RegisterRequest{ID: "f1"})
	require.ErrorIs(t, err, sourcefile.ErrInvalidInput)
}

func TestSourceFileService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SourceFileRepository{}
	repo.On("Get", ctx, "nope").Return((*sourcefile.File)(nil), repository.ErrNotFound)
	_, err := sourcefile.NewService(repo, nil).Get(ctx, "nope")
	require.ErrorIs(t, err, sourcefile.ErrFileNotFound)
}
