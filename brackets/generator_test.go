package brackets

import (
	"testing"

	"github.com/marchpool/bracket-pool/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marchFieldEntries(t *testing.T) []SeedEntry {
	t.Helper()
	regions := []string{"East", "West", "South", "Midwest"}
	entries := make([]SeedEntry, 0, 64)
	for _, region := range regions {
		for seed := 1; seed <= 16; seed++ {
			entries = append(entries, SeedEntry{
				TeamID: region + "-team-" + string(rune('a'+seed-1)),
				Seed:   seed,
				Region: region,
			})
		}
	}
	return entries
}

func TestGenerateGamesFullField(t *testing.T) {
	entries := marchFieldEntries(t)

	games, err := GenerateGames("t1", entries)
	require.NoError(t, err)
	require.Len(t, games, 63)

	byRound := make(map[int][]*models.Game)
	for _, g := range games {
		byRound[g.Round] = append(byRound[g.Round], g)
	}

	assert.Len(t, byRound[1], 32)
	assert.Len(t, byRound[2], 16)
	assert.Len(t, byRound[3], 8)
	assert.Len(t, byRound[4], 4)
	assert.Len(t, byRound[5], 2)
	assert.Len(t, byRound[6], 1)
}

func TestGenerateGamesSequentialNumbers(t *testing.T) {
	games, err := GenerateGames("t1", marchFieldEntries(t))
	require.NoError(t, err)

	for i, g := range games {
		assert.Equal(t, i+1, g.GameNumber)
		assert.Equal(t, "t1", g.TournamentID)
		assert.Equal(t, models.GameStatusScheduled, g.Status)
		assert.NotEmpty(t, g.ID)
	}
}

func TestGenerateGamesRoundOnePairing(t *testing.T) {
	games, err := GenerateGames("t1", marchFieldEntries(t))
	require.NoError(t, err)

	// Region order follows first appearance, so games 1-8 are East.
	first := games[0]
	require.NotNil(t, first.Team1ID)
	require.NotNil(t, first.Team2ID)
	assert.Equal(t, "East-team-a", *first.Team1ID) // seed 1
	assert.Equal(t, "East-team-p", *first.Team2ID) // seed 16

	second := games[1]
	assert.Equal(t, "East-team-b", *second.Team1ID) // seed 2
	assert.Equal(t, "East-team-o", *second.Team2ID) // seed 15

	for _, g := range games[:32] {
		assert.Equal(t, 1, g.Round)
		assert.Nil(t, g.ParentGame1ID)
		assert.Nil(t, g.ParentGame2ID)
		assert.NotNil(t, g.Team1ID)
		assert.NotNil(t, g.Team2ID)
	}
}

func TestGenerateGamesParentWiring(t *testing.T) {
	games, err := GenerateGames("t1", marchFieldEntries(t))
	require.NoError(t, err)

	gamesByID := make(map[string]*models.Game)
	for _, g := range games {
		gamesByID[g.ID] = g
	}

	childCount := make(map[string]int)
	for _, g := range games {
		if g.Round == 1 {
			continue
		}
		assert.Nil(t, g.Team1ID)
		assert.Nil(t, g.Team2ID)

		require.NotNil(t, g.ParentGame1ID)
		require.NotNil(t, g.ParentGame2ID)
		p1 := gamesByID[*g.ParentGame1ID]
		p2 := gamesByID[*g.ParentGame2ID]
		require.NotNil(t, p1)
		require.NotNil(t, p2)
		assert.Equal(t, g.Round-1, p1.Round)
		assert.Equal(t, g.Round-1, p2.Round)

		childCount[p1.ID]++
		childCount[p2.ID]++
	}

	// Every game except the championship feeds exactly one later game.
	final := games[len(games)-1]
	assert.Equal(t, 6, final.Round)
	assert.Zero(t, childCount[final.ID])
	for _, g := range games[:len(games)-1] {
		assert.Equal(t, 1, childCount[g.ID], "game %d", g.GameNumber)
	}
}

func TestGenerateGamesSmallField(t *testing.T) {
	entries := []SeedEntry{
		{TeamID: "a", Seed: 1, Region: "Only"},
		{TeamID: "b", Seed: 2, Region: "Only"},
		{TeamID: "c", Seed: 3, Region: "Only"},
		{TeamID: "d", Seed: 4, Region: "Only"},
	}

	games, err := GenerateGames("t1", entries)
	require.NoError(t, err)
	require.Len(t, games, 3)

	assert.Equal(t, "a", *games[0].Team1ID)
	assert.Equal(t, "d", *games[0].Team2ID)
	assert.Equal(t, "b", *games[1].Team1ID)
	assert.Equal(t, "c", *games[1].Team2ID)
	assert.Equal(t, games[0].ID, *games[2].ParentGame1ID)
	assert.Equal(t, games[1].ID, *games[2].ParentGame2ID)
}

func TestGenerateGamesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		entries []SeedEntry
		wantErr error
	}{
		{
			name:    "empty",
			entries: nil,
			wantErr: ErrNoEntries,
		},
		{
			name: "uneven regions",
			entries: []SeedEntry{
				{TeamID: "a", Seed: 1, Region: "X"},
				{TeamID: "b", Seed: 2, Region: "X"},
				{TeamID: "c", Seed: 1, Region: "Y"},
				{TeamID: "d", Seed: 2, Region: "Y"},
				{TeamID: "e", Seed: 3, Region: "Y"},
				{TeamID: "f", Seed: 4, Region: "Y"},
			},
			wantErr: ErrUnevenRegions,
		},
		{
			name: "region size not a power of two",
			entries: []SeedEntry{
				{TeamID: "a", Seed: 1, Region: "X"},
				{TeamID: "b", Seed: 2, Region: "X"},
				{TeamID: "c", Seed: 3, Region: "X"},
			},
			wantErr: ErrRegionSizeNotPow2,
		},
		{
			name: "seed gap",
			entries: []SeedEntry{
				{TeamID: "a", Seed: 1, Region: "X"},
				{TeamID: "b", Seed: 3, Region: "X"},
			},
			wantErr: ErrBadSeedSequence,
		},
		{
			name: "duplicate team",
			entries: []SeedEntry{
				{TeamID: "a", Seed: 1, Region: "X"},
				{TeamID: "a", Seed: 2, Region: "X"},
			},
			wantErr: ErrDuplicateTeamEntry,
		},
		{
			name: "three regions cannot merge",
			entries: []SeedEntry{
				{TeamID: "a", Seed: 1, Region: "X"},
				{TeamID: "b", Seed: 2, Region: "X"},
				{TeamID: "c", Seed: 1, Region: "Y"},
				{TeamID: "d", Seed: 2, Region: "Y"},
				{TeamID: "e", Seed: 1, Region: "Z"},
				{TeamID: "f", Seed: 2, Region: "Z"},
			},
			wantErr: ErrUnevenRegions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateGames("t1", tt.entries)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
