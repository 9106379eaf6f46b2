package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rpggio/siteflow/internal/app"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/workflow"
	"github.com/stretchr/testify/require"
)

func TestOpen_Drivers(t *testing.T) {
	for _, driver := range []string{app.DriverMemory, app.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			stores, closeFn, err := app.Open(driver, filepath.Join(t.TempDir(), "siteflow.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = closeFn() })

			e := app.NewEngine(stores, app.Options{Rules: routing.DefaultRules()})
			res, err := e.Submit(context.Background(), workflow.SubmitRequest{
				FileID:  "f1",
				Row:     site.Row{site.ColumnSiteCode: "MYS002", site.ColumnDeviceType: "RMU", site.ColumnCircle: "SOUTH"},
				Headers: []string{site.ColumnSiteCode, site.ColumnDeviceType, site.ColumnCircle},
				Issue:   "RTU Issue",
				Caller:  workflow.Caller{Role: team.RoleEquipment},
			})
			require.NoError(t, err)
			require.True(t, res.OK())
			require.Len(t, res.Results, 1)
			require.Equal(t, team.RoleRTU, res.Results[0].Action.AssignedToRole)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := app.Open("postgres", "")
	require.Error(t, err)
}
