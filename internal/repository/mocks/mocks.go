package mocks

import (
	"context"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/stretchr/testify/mock"
)

// ActionRepository is a mock for action.Repository.
type ActionRepository struct {
	mock.Mock
}

func (m *ActionRepository) Create(ctx context.Context, a *action.Action) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *ActionRepository) Get(ctx context.Context, id string) (*action.Action, error) {
	args := m.Called(ctx, id)
	if a, ok := args.Get(0).(*action.Action); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActionRepository) Update(ctx context.Context, a *action.Action, expectedVersion int64) error {
	args := m.Called(ctx, a, expectedVersion)
	return args.Error(0)
}

func (m *ActionRepository) List(ctx context.Context, opts action.ListOptions) ([]action.Action, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]action.Action); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ObservationRepository is a mock for observation.Repository.
type ObservationRepository struct {
	mock.Mock
}

func (m *ObservationRepository) Put(ctx context.Context, st *observation.State) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *ObservationRepository) Get(ctx context.Context, subject string, role team.Role) (*observation.State, error) {
	args := m.Called(ctx, subject, role)
	if st, ok := args.Get(0).(*observation.State); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ObservationRepository) FindBySite(ctx context.Context, siteCode string, role team.Role) ([]observation.State, error) {
	args := m.Called(ctx, siteCode, role)
	if list, ok := args.Get(0).([]observation.State); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ObservationRepository) ListByFile(ctx context.Context, fileID string) ([]observation.State, error) {
	args := m.Called(ctx, fileID)
	if list, ok := args.Get(0).([]observation.State); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ObservationRepository) Rekey(ctx context.Context, from, to rowkey.RowKey) error {
	args := m.Called(ctx, from, to)
	return args.Error(0)
}

// ExclusionRepository is a mock for exclusion.Repository.
type ExclusionRepository struct {
	mock.Mock
}

func (m *ExclusionRepository) Add(ctx context.Context, e *exclusion.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *ExclusionRepository) ListByFile(ctx context.Context, fileID string) ([]exclusion.Entry, error) {
	args := m.Called(ctx, fileID)
	if list, ok := args.Get(0).([]exclusion.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExclusionRepository) ListAll(ctx context.Context) ([]exclusion.Entry, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]exclusion.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SourceFileRepository is a mock for sourcefile.Repository.
type SourceFileRepository struct {
	mock.Mock
}

func (m *SourceFileRepository) Create(ctx context.Context, f *sourcefile.File) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *SourceFileRepository) Get(ctx context.Context, id string) (*sourcefile.File, error) {
	args := m.Called(ctx, id)
	if f, ok := args.Get(0).(*sourcefile.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SourceFileRepository) Update(ctx context.Context, f *sourcefile.File) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *SourceFileRepository) List(ctx context.Context) ([]sourcefile.File, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]sourcefile.File); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SourceFileRepository) IncrementTick(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
