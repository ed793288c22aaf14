package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

type report struct {
	generation  int
	bestFitness int
	best        *scheduler.Grid
}

func newScheduler(t *testing.T, n, r, k int, seed int64) *scheduler.Scheduler {
	t.Helper()
	params := scheduler.DefaultParameters(n, r, k)
	params.Seed = &seed
	s, err := scheduler.New(params)
	require.NoError(t, err)
	return s
}

func TestNew_InvalidConfiguration(t *testing.T) {
	cases := []struct {
		name    string
		n, r, k int
	}{
		{"OneParticipant", 1, 3, 3},
		{"NoRounds", 4, 0, 2},
		{"NoVenues", 4, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scheduler.New(scheduler.DefaultParameters(tc.n, tc.r, tc.k))
			require.ErrorIs(t, err, scheduler.ErrInvalidConfiguration)
		})
	}

	params := scheduler.DefaultParameters(4, 2, 2)
	params.EliteCount = 0
	_, err := scheduler.New(params)
	require.ErrorIs(t, err, scheduler.ErrInvalidConfiguration)

	_, err = scheduler.New(nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidConfiguration)
}

func TestRun_InsufficientVenues(t *testing.T) {
	s := newScheduler(t, 10, 3, 4, 1)

	called := false
	best, err := s.Run(context.Background(), 10, func(int, int, *scheduler.Grid) { called = true })
	require.ErrorIs(t, err, scheduler.ErrInsufficientVenues)
	assert.Nil(t, best)
	assert.False(t, called)

	generation, pop := s.LastPopulation()
	assert.Zero(t, generation)
	assert.Empty(t, pop)
}

func TestRun_InvalidMaxGenerations(t *testing.T) {
	s := newScheduler(t, 4, 2, 2, 1)
	_, err := s.Run(context.Background(), 0, nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidConfiguration)
}

func TestRun_ScenarioEvenParticipants(t *testing.T) {
	s := newScheduler(t, 4, 2, 2, 101)

	best, err := s.Run(context.Background(), 20, nil)
	require.NoError(t, err)
	require.NoError(t, scheduler.ValidatePairing(best))

	for r := 0; r < best.Rounds; r++ {
		venues := make(map[int][]int)
		for p, venue := range best.Row(r) {
			require.NotZero(t, venue)
			venues[venue] = append(venues[venue], p)
		}
		require.Len(t, venues, 2)
		for _, players := range venues {
			require.Len(t, players, 2)
			assert.NotEqual(t, players[0], players[1])
		}
	}
}

func TestRun_ScenarioOddParticipants(t *testing.T) {
	s := newScheduler(t, 5, 3, 3, 202)

	best, err := s.Run(context.Background(), 20, nil)
	require.NoError(t, err)
	require.NoError(t, scheduler.ValidatePairing(best))

	resting := 0
	for r := 0; r < best.Rounds; r++ {
		perRound := 0
		for _, venue := range best.Row(r) {
			if venue == 0 {
				perRound++
			}
		}
		assert.Equal(t, 1, perRound)
		resting += perRound
	}
	assert.Equal(t, 3, resting)
}

func TestRun_ScenarioTrivial(t *testing.T) {
	s := newScheduler(t, 2, 1, 1, 303)

	var reports []report
	best, err := s.Run(context.Background(), 3, func(generation, bestFitness int, best *scheduler.Grid) {
		reports = append(reports, report{generation, bestFitness, best.Clone()})
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, best.Cells)
	assert.Equal(t, 1001, scheduler.CalculateFitness(best).Score())
	require.Len(t, reports, 3)
	for i, rep := range reports {
		assert.Equal(t, i+1, rep.generation)
		assert.Equal(t, 1001, rep.bestFitness)
	}
}

func TestRun_ReportsEveryGeneration(t *testing.T) {
	s := newScheduler(t, 8, 7, 4, 404)

	var reports []report
	best, err := s.Run(context.Background(), 12, func(generation, bestFitness int, best *scheduler.Grid) {
		require.NoError(t, scheduler.ValidatePairing(best))
		assert.Equal(t, scheduler.CalculateFitness(best).Score(), bestFitness)
		reports = append(reports, report{generation, bestFitness, best})
	})
	require.NoError(t, err)
	require.Len(t, reports, 12)

	for i, rep := range reports {
		assert.Equal(t, i+1, rep.generation)
	}
	assert.Same(t, reports[11].best, best)

	generation, pop := s.LastPopulation()
	assert.Equal(t, 12, generation)
	assert.Len(t, pop, 100)
}

func TestRun_DeterministicUnderFixedSeed(t *testing.T) {
	run := func(workers int) ([]report, *scheduler.Grid) {
		params := scheduler.DefaultParameters(9, 6, 5)
		seed := int64(20240601)
		params.Seed = &seed
		params.Workers = workers
		s, err := scheduler.New(params)
		require.NoError(t, err)

		var reports []report
		best, err := s.Run(context.Background(), 15, func(generation, bestFitness int, best *scheduler.Grid) {
			reports = append(reports, report{generation, bestFitness, best.Clone()})
		})
		require.NoError(t, err)
		return reports, best
	}

	reports1, best1 := run(1)
	reports2, best2 := run(8)

	assert.Equal(t, best1.Cells, best2.Cells)
	require.Equal(t, len(reports1), len(reports2))
	for i := range reports1 {
		assert.Equal(t, reports1[i].generation, reports2[i].generation)
		assert.Equal(t, reports1[i].bestFitness, reports2[i].bestFitness)
		assert.Equal(t, reports1[i].best.Cells, reports2[i].best.Cells)
	}
}

func TestRun_ZeroSeedIsReproducible(t *testing.T) {
	run := func() *scheduler.Grid {
		s := newScheduler(t, 7, 5, 4, 0)
		best, err := s.Run(context.Background(), 5, nil)
		require.NoError(t, err)
		return best
	}

	assert.Equal(t, run().Cells, run().Cells)
}

func TestRun_CancelledInsideCallback(t *testing.T) {
	s := newScheduler(t, 6, 5, 3, 505)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reported *scheduler.Grid
	var generations []int
	best, err := s.Run(ctx, 50, func(generation, _ int, best *scheduler.Grid) {
		generations = append(generations, generation)
		if generation == 3 {
			reported = best
			cancel()
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, generations)
	assert.Same(t, reported, best)

	generation, _ := s.LastPopulation()
	assert.Equal(t, 3, generation)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	s := newScheduler(t, 6, 5, 3, 606)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var generations []int
	var reported *scheduler.Grid
	best, err := s.Run(ctx, 50, func(generation, _ int, best *scheduler.Grid) {
		generations = append(generations, generation)
		reported = best
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, generations)
	assert.Same(t, reported, best)
}

func TestResume_ContinuesFromSnapshot(t *testing.T) {
	first := newScheduler(t, 6, 4, 3, 707)
	_, err := first.Run(context.Background(), 3, nil)
	require.NoError(t, err)

	generation, pop := first.LastPopulation()
	snapshot := scheduler.Snapshot(generation, 3, pop)
	require.Len(t, snapshot.Individuals, 100)
	assert.Equal(t, 3, snapshot.Generation)
	assert.Equal(t, 6, snapshot.Participants)
	assert.Equal(t, 4, snapshot.Rounds)

	second := newScheduler(t, 6, 4, 3, 808)
	var generations []int
	best, err := second.Resume(context.Background(), snapshot, 2, func(generation, _ int, _ *scheduler.Grid) {
		generations = append(generations, generation)
	})
	require.NoError(t, err)
	require.NoError(t, scheduler.ValidatePairing(best))
	assert.Equal(t, []int{4, 5}, generations)
}

func TestResume_InvalidSnapshot(t *testing.T) {
	s := newScheduler(t, 4, 2, 2, 909)

	_, err := s.Resume(context.Background(), nil, 5, nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidPopulation)

	// 个体数量不足
	small := scheduler.Snapshot(1, 2, []*scheduler.Grid{{Rounds: 2, Participants: 4, Cells: []int{1, 1, 2, 2, 2, 2, 1, 1}}})
	_, err = s.Resume(context.Background(), small, 5, nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidPopulation)

	// 违反配对约束
	broken := make([]*scheduler.Grid, 100)
	for i := range broken {
		broken[i] = &scheduler.Grid{Rounds: 2, Participants: 4, Cells: []int{1, 1, 2, 2, 1, 2, 2, 2}}
	}
	_, err = s.Resume(context.Background(), scheduler.Snapshot(1, 2, broken), 5, nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidPopulation)
	require.ErrorIs(t, err, scheduler.ErrPairingViolated)

	// 场地超出范围
	outOfRange := make([]*scheduler.Grid, 100)
	for i := range outOfRange {
		outOfRange[i] = &scheduler.Grid{Rounds: 2, Participants: 4, Cells: []int{1, 1, 3, 3, 1, 1, 2, 2}}
	}
	_, err = s.Resume(context.Background(), scheduler.Snapshot(1, 2, outOfRange), 5, nil)
	require.ErrorIs(t, err, scheduler.ErrInvalidPopulation)
}

func TestGridFromGenes(t *testing.T) {
	g, err := scheduler.GridFromGenes([]domain.Gene{
		{Row: 0, Column: 0, Value: 1},
		{Row: 0, Column: 1, Value: 1},
		{Row: 0, Column: 2, Value: 0},
		{Row: 1, Column: 0, Value: 0},
		{Row: 1, Column: 1, Value: 4},
		{Row: 1, Column: 2, Value: 4},
	}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rounds)
	assert.Equal(t, 3, g.Participants)
	assert.Equal(t, []int{1, 1, 0, 0, 4, 4}, g.Cells)
}

func TestGridFromGenes_Rejected(t *testing.T) {
	cases := []struct {
		name                 string
		genes                []domain.Gene
		rounds, participants int
	}{
		{"Empty", nil, 1, 2},
		{"NegativeCoordinate", []domain.Gene{{Row: -1, Column: 0, Value: 1}, {Row: 0, Column: 1, Value: 1}}, 1, 2},
		{"CoordinateOutOfRange", []domain.Gene{{Row: 0, Column: 0, Value: 1}, {Row: 0, Column: 5, Value: 1}}, 1, 2},
		{"DuplicateCoordinate", []domain.Gene{{Row: 0, Column: 0, Value: 1}, {Row: 0, Column: 0, Value: 1}}, 1, 2},
		{"TooFewGenes", []domain.Gene{{Row: 0, Column: 0, Value: 1}}, 1, 2},
		// 存储中被破坏的规模不能导致巨大的分配
		{"HugeDimensions", []domain.Gene{{Row: 0, Column: 0, Value: 1}, {Row: 0, Column: 1, Value: 1}}, 1 << 30, 1 << 30},
		{"ZeroRounds", []domain.Gene{{Row: 0, Column: 0, Value: 1}}, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scheduler.GridFromGenes(tc.genes, tc.rounds, tc.participants)
			require.ErrorIs(t, err, scheduler.ErrInvalidPopulation)
		})
	}
}

func TestSnapshot_GenesCoverEveryCell(t *testing.T) {
	g := &scheduler.Grid{Rounds: 2, Participants: 3, Cells: []int{1, 1, 0, 0, 2, 2}}
	snapshot := scheduler.Snapshot(7, 2, []*scheduler.Grid{g})

	require.Len(t, snapshot.Individuals, 1)
	genes := snapshot.Individuals[0].Genes
	require.Len(t, genes, 6)
	assert.Equal(t, domain.Gene{Row: 1, Column: 1, Value: 2}, genes[4])

	rebuilt, err := scheduler.GridFromGenes(genes, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, g.Cells, rebuilt.Cells)
}
