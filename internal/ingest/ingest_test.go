package ingest_test

import (
	"testing"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/ingest"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setCellValue(t *testing.T, f *excelize.File, sheet, ref string, value any) {
	t.Helper()
	require.NoError(t, f.SetCellValue(sheet, ref, value))
}

func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return ref
}

func workbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for r, values := range rows {
		for c, v := range values {
			setCellValue(t, f, sheet, cell(c, r), v)
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook_NormalisesHeadersOnce(t *testing.T) {
	content := workbook(t, "Sheet1", [][]any{
		{},
		{" Site Code ", "Device-Type", "Zone", "Division", "No of Days", ""},
		{"BLR001", "RMU", "SOUTH", "Bangalore", 12},
		{"", "", "", "", ""},
		{"MYS002", "FPI", "SOUTH"},
	})

	sheet, err := ingest.ReadWorkbook(content)
	require.NoError(t, err)
	require.Equal(t, "Sheet1", sheet.Name)
	require.Equal(t, []string{"Site Code", "Device-Type", "Zone", "Division", "No of Days"}, sheet.RawHeaders)
	require.Equal(t, []string{
		site.ColumnSiteCode, site.ColumnDeviceType, site.ColumnCircle, site.ColumnDivision, site.ColumnDaysOffline,
	}, sheet.Schema.Columns)
	require.Len(t, sheet.Values, 2)
	require.Len(t, sheet.Values[1], 5, "short rows are padded")

	rows := sheet.Rows()
	require.Equal(t, site.SiteRecord{
		SiteCode: "BLR001", DeviceType: "RMU", Circle: "SOUTH", Division: "Bangalore", DaysOffline: 12,
	}, rows[0].Record())
	require.Equal(t, "", rows[1].Get(site.ColumnDivision))
}

func TestReadSheet_ByName(t *testing.T) {
	content := workbook(t, "Offline", [][]any{
		{"Site", "Device Type"},
		{"DEL108", "RMU"},
	})

	sheet, err := ingest.ReadSheet(content, "Offline")
	require.NoError(t, err)
	require.Equal(t, "DEL108", sheet.Rows()[0].Get(site.ColumnSiteCode))

	_, err = ingest.ReadSheet(content, "Missing")
	require.ErrorIs(t, err, ingest.ErrNoSheet)
}

func TestReadWorkbook_Errors(t *testing.T) {
	_, err := ingest.ReadWorkbook([]byte("not a workbook"))
	require.Error(t, err)

	_, err = ingest.ReadWorkbook(workbook(t, "Sheet1", nil))
	require.ErrorIs(t, err, ingest.ErrNoHeader)
}
