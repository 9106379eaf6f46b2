package site_test

import (
	"testing"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	require.Equal(t, site.ColumnSiteCode, site.NormalizeHeader(" Site  Code "))
	require.Equal(t, site.ColumnSiteCode, site.NormalizeHeader("SITE_CODE"))
	require.Equal(t, site.ColumnDeviceType, site.NormalizeHeader("Device-Type"))
	require.Equal(t, site.ColumnDaysOffline, site.NormalizeHeader("Days Offline"))
	require.Equal(t, "feeder name", site.NormalizeHeader("Feeder__Name"))
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "BLR001", site.NormalizeCode(" blr 001\t"))
	require.Equal(t, "", site.NormalizeCode("   "))
}

func TestSchema_RowAndRecord(t *testing.T) {
	schema := site.NewSchema([]string{"Site Code", "Device Type", "Circle", "Division", "Days Offline", "Notes", "notes"})
	require.Equal(t, []string{"site_code", "device_type", "circle", "division", "days_offline", "notes", "notes 2"}, schema.Columns)

	row := schema.Row([]string{" BLR001 ", "RMU", "SOUTH", "Bangalore", "12.0"})
	require.Equal(t, "BLR001", row.Get(site.ColumnSiteCode))
	require.Equal(t, "", row.Get("notes"))

	rec := row.Record()
	require.Equal(t, site.SiteRecord{
		SiteCode:    "BLR001",
		DeviceType:  "RMU",
		Circle:      "SOUTH",
		Division:    "Bangalore",
		DaysOffline: 12,
	}, rec)
}
