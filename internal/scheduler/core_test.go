package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridFromRows(rows ...[]int) *Grid {
	g := NewGrid(len(rows), len(rows[0]))
	for r, row := range rows {
		copy(g.Row(r), row)
	}
	return g
}

func TestCreateRandomSchedule_PairingInvariant(t *testing.T) {
	cases := []struct {
		name            string
		n, r, k         int
		restingPerRound int
	}{
		{"Even", 4, 2, 2, 0},
		{"Odd", 5, 3, 3, 1},
		{"ManyVenues", 7, 4, 10, 1},
		{"RoundRobinSized", 10, 9, 5, 0},
		{"Trivial", 2, 1, 1, 0},
	}

	rng := rand.New(rand.NewSource(7))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				g, err := CreateRandomSchedule(tc.n, tc.r, tc.k, rng)
				require.NoError(t, err)
				require.Equal(t, tc.r, g.Rounds)
				require.Equal(t, tc.n, g.Participants)
				require.NoError(t, ValidatePairing(g))

				for r := 0; r < g.Rounds; r++ {
					resting := 0
					for _, venue := range g.Row(r) {
						assert.LessOrEqual(t, venue, tc.k)
						if venue == 0 {
							resting++
						}
					}
					assert.Equal(t, tc.restingPerRound, resting, "round %d", r)
				}
			}
		})
	}
}

func TestCreateRandomSchedule_InsufficientVenues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := CreateRandomSchedule(6, 2, 2, rng)
	require.ErrorIs(t, err, ErrInsufficientVenues)

	_, err = CreateRandomSchedule(5, 2, 2, rng)
	require.ErrorIs(t, err, ErrInsufficientVenues)

	_, err = CreateRandomSchedule(6, 2, 3, rng)
	require.NoError(t, err)
}

func TestCalculateFitness_Trivial(t *testing.T) {
	g := gridFromRows([]int{1, 1})

	f := CalculateFitness(g)
	assert.Equal(t, Fitness{MinOpponents: 1, MinVenues: 1}, f)
	assert.Equal(t, 1001, f.Score())
}

func TestCalculateFitness_RestingCellsAreIgnored(t *testing.T) {
	g := gridFromRows(
		[]int{1, 1, 2, 2, 0},
		[]int{0, 1, 1, 2, 2},
		[]int{2, 0, 1, 1, 2},
	)
	require.NoError(t, ValidatePairing(g))

	// 参赛者 1 和 4 各自只去过一个场地；若把 0 当作场地，它们会变成 2
	f := CalculateFitness(g)
	assert.Equal(t, Fitness{MinOpponents: 2, MinVenues: 1}, f)
	assert.Equal(t, 2001, f.Score())
}

func TestCalculateFitness_RepeatedOpponentCountsOnce(t *testing.T) {
	g := gridFromRows(
		[]int{1, 1, 2, 2},
		[]int{2, 2, 1, 1},
	)

	f := CalculateFitness(g)
	assert.Equal(t, 1, f.MinOpponents)
	assert.Equal(t, 2, f.MinVenues)
}

func TestCalculateFitness_LargeVenueNumbers(t *testing.T) {
	g := gridFromRows(
		[]int{1 << 40, 1 << 40, 7, 7},
		[]int{7, 7, 1 << 40, 1 << 40},
	)

	f := CalculateFitness(g)
	assert.Equal(t, 1, f.MinOpponents)
	assert.Equal(t, 2, f.MinVenues)
}

func TestFitnessFromCounts_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		n := 2 + rng.Intn(10)
		opponents := make([]int, n)
		venues := make([]int, n)
		for p := range opponents {
			opponents[p] = rng.Intn(n)
			venues[p] = rng.Intn(6)
		}
		before := fitnessFromCounts(opponents, venues)

		p := rng.Intn(n)
		if rng.Intn(2) == 0 {
			opponents[p]++
		} else {
			venues[p]++
		}
		after := fitnessFromCounts(opponents, venues)

		require.GreaterOrEqual(t, after.MinOpponents, before.MinOpponents)
		require.GreaterOrEqual(t, after.MinVenues, before.MinVenues)
		require.GreaterOrEqual(t, after.Score(), before.Score())
	}
}

func TestFitness_Compare(t *testing.T) {
	cases := []struct {
		name string
		a, b Fitness
		want int
	}{
		{"Equal", Fitness{2, 3}, Fitness{2, 3}, 0},
		{"MoreOpponents", Fitness{3, 0}, Fitness{2, 999}, 1},
		{"FewerVenues", Fitness{2, 1}, Fitness{2, 2}, -1},
		{"VenuesBeyondScoreRange", Fitness{1, 1500}, Fitness{2, 0}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Compare(tc.b))
		})
	}
}

func TestValidatePairing(t *testing.T) {
	cases := []struct {
		name  string
		grid  *Grid
		valid bool
	}{
		{"Valid", gridFromRows([]int{1, 2, 2, 1}), true},
		{"ValidOdd", gridFromRows([]int{1, 0, 1}), true},
		{"SingleCellVenue", gridFromRows([]int{1, 2, 2, 3}), false},
		{"ThreeOnVenue", gridFromRows([]int{1, 1, 1, 0, 2, 2}), false},
		{"RestWithEvenParticipants", gridFromRows([]int{1, 1, 0, 0}), false},
		{"TwoRestingOdd", gridFromRows([]int{1, 0, 0}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePairing(tc.grid)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrPairingViolated)
			}
		})
	}
}

func TestSelectBestSchedules(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pop := make([]*Grid, 100)
	scores := make([]Fitness, 100)
	for i := range pop {
		g, err := CreateRandomSchedule(8, 5, 4, rng)
		require.NoError(t, err)
		pop[i] = g
		scores[i] = CalculateFitness(g)
	}

	selected := SelectBestSchedules(pop, scores, 20)
	require.Len(t, selected, 20)

	chosen := make(map[*Grid]bool)
	worstSelected := CalculateFitness(selected[0])
	for _, g := range selected {
		chosen[g] = true
		if f := CalculateFitness(g); f.Compare(worstSelected) < 0 {
			worstSelected = f
		}
	}
	for i, g := range pop {
		if chosen[g] {
			continue
		}
		assert.LessOrEqual(t, scores[i].Compare(worstSelected), 0)
	}
}

func TestSelectBestSchedules_StableOnTies(t *testing.T) {
	pop := make([]*Grid, 30)
	scores := make([]Fitness, 30)
	for i := range pop {
		pop[i] = gridFromRows([]int{1, 1})
		scores[i] = Fitness{MinOpponents: 1, MinVenues: 1}
	}
	scores[25] = Fitness{MinOpponents: 2}

	selected := SelectBestSchedules(pop, scores, 20)
	require.Len(t, selected, 20)
	assert.Same(t, pop[25], selected[0])
	for i := 1; i < 20; i++ {
		assert.Same(t, pop[i-1], selected[i])
	}
}

func TestCrossover_CopiesWholeRounds(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p1, err := CreateRandomSchedule(9, 12, 5, rng)
	require.NoError(t, err)
	p2, err := CreateRandomSchedule(9, 12, 5, rng)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		child := Crossover(p1, p2, rng)
		require.NoError(t, ValidatePairing(child))
		for r := 0; r < child.Rounds; r++ {
			row := child.Row(r)
			assert.True(t, equalRows(row, p1.Row(r)) || equalRows(row, p2.Row(r)), "round %d", r)
		}
	}
}

func equalRows(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPairSwapMutation_PreservesPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	mutation := PairSwapMutation{Rate: 1}
	changed := 0

	for i := 0; i < 200; i++ {
		g, err := CreateRandomSchedule(7, 6, 4, rng)
		require.NoError(t, err)
		before := g.Clone()

		require.NoError(t, mutation.Mutate(g, rng))
		require.NoError(t, ValidatePairing(g))

		for r := 0; r < g.Rounds; r++ {
			for p := 0; p < g.Participants; p++ {
				// 同一对参赛者在变异前后仍然是一对，轮空者不变
				assert.Equal(t, before.At(r, p) == 0, g.At(r, p) == 0)
				for q := 0; q < g.Participants; q++ {
					if p == q || before.At(r, p) == 0 {
						continue
					}
					assert.Equal(t, before.At(r, p) == before.At(r, q), g.At(r, p) == g.At(r, q))
				}
			}
		}
		if !equalRows(before.Cells, g.Cells) {
			changed++
		}
	}
	assert.Positive(t, changed)
}

func TestPairSwapMutation_TooFewPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	mutation := PairSwapMutation{Rate: 1}

	g := gridFromRows([]int{1, 1}, []int{1, 1})
	require.NoError(t, mutation.Mutate(g, rng))
	assert.Equal(t, []int{1, 1, 1, 1}, g.Cells)

	g = gridFromRows([]int{0, 2, 2})
	require.NoError(t, mutation.Mutate(g, rng))
	assert.Equal(t, []int{0, 2, 2}, g.Cells)
}

func TestPairSwapMutation_DetectsBrokenRound(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	g := gridFromRows([]int{1, 2, 3, 3})

	err := PairSwapMutation{Rate: 1}.Mutate(g, rng)
	require.ErrorIs(t, err, ErrPairingViolated)
}

func TestPairSwapMutation_ZeroRate(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	g, err := CreateRandomSchedule(8, 10, 4, rng)
	require.NoError(t, err)
	before := g.Clone()

	require.NoError(t, PairSwapMutation{Rate: 0}.Mutate(g, rng))
	assert.Equal(t, before.Cells, g.Cells)
}

func TestGenerateNewPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	selected := make([]*Grid, 20)
	for i := range selected {
		g, err := CreateRandomSchedule(6, 5, 3, rng)
		require.NoError(t, err)
		selected[i] = g
	}
	elites := make([]*Grid, len(selected))
	for i, g := range selected {
		elites[i] = g.Clone()
	}

	pop, err := GenerateNewPopulation(selected, 100, rng, PairSwapMutation{Rate: 0.1})
	require.NoError(t, err)
	require.Len(t, pop, 100)

	for i := range selected {
		assert.Same(t, selected[i], pop[i])
		assert.Equal(t, elites[i].Cells, pop[i].Cells)
	}
	for _, g := range pop {
		require.NoError(t, ValidatePairing(g))
	}
}

func TestGenerateNewPopulation_NoParents(t *testing.T) {
	_, err := GenerateNewPopulation(nil, 100, rand.New(rand.NewSource(1)), PairSwapMutation{Rate: 0.1})
	require.ErrorIs(t, err, ErrInvalidPopulation)
}

func TestDeriveSeed_DistinctStreams(t *testing.T) {
	seen := make(map[int64]bool)
	for i := int64(0); i < 1000; i++ {
		s := deriveSeed(42, i)
		require.False(t, seen[s])
		seen[s] = true
	}
	assert.Equal(t, deriveSeed(42, 3), deriveSeed(42, 3))
	assert.NotEqual(t, deriveSeed(42, 3), deriveSeed(43, 3))
}
