package team_test

import (
	"testing"

	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/stretchr/testify/require"
)

func TestParse_Aliases(t *testing.T) {
	cases := map[string]team.Role{
		"O&M Team":               team.RoleOM,
		" om ":                   team.RoleOM,
		"AMC":                    team.RoleAMC,
		"RTU/Communication Team": team.RoleRTU,
		"ccr":                    team.RoleCCR,
		"Equipment":              team.RoleEquipment,
	}
	for in, want := range cases {
		got, ok := team.Parse(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}

	_, ok := team.Parse("finance")
	require.False(t, ok)
}

func TestApproverLadder(t *testing.T) {
	approver, ok := team.ApproverOf(team.RoleAMC)
	require.True(t, ok)
	require.Equal(t, team.RoleEquipment, approver)

	approver, ok = team.ApproverOf(team.RoleEquipment)
	require.True(t, ok)
	require.Equal(t, team.RoleCCR, approver)

	approver, ok = team.ApproverOf(team.RoleOM)
	require.True(t, ok)
	require.Equal(t, team.RoleCCR, approver)

	_, ok = team.ApproverOf(team.RoleCCR)
	require.False(t, ok)

	require.True(t, team.HasIntermediateApprover(team.RoleAMC))
	require.False(t, team.HasIntermediateApprover(team.RoleOM))
	require.False(t, team.HasIntermediateApprover(team.RoleCCR))
}

func TestTeamName(t *testing.T) {
	require.Equal(t, "O&M Team", team.RoleOM.TeamName())
	require.Equal(t, "AMC Team", team.RoleAMC.TeamName())
	require.Equal(t, "RTU/Communication Team", team.RoleRTU.TeamName())
	require.Equal(t, "CCR", team.RoleCCR.TeamName())
	require.False(t, team.Role("om").Valid())
	require.True(t, team.RoleOM.Valid())
}

func TestRank(t *testing.T) {
	require.Less(t, team.RoleOM.Rank(), team.RoleAMC.Rank())
	require.Equal(t, len(team.All), team.Role("Intern").Rank())
}
