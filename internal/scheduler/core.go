package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
)

// CreateRandomSchedule 随机生成一个满足两两配对约束的赛程
// 每一轮独立地打乱参赛者，相邻两人组成一对，并从剩余场地中不放回地抽取一个场地
func CreateRandomSchedule(participants, rounds, venues int, rng *rand.Rand) (*Grid, error) {
	if err := CheckVenues(participants, venues); err != nil {
		return nil, err
	}

	g := NewGrid(rounds, participants)
	order := make([]int, participants)
	pool := make([]int, venues)

	for r := 0; r < rounds; r++ {
		for i := range order {
			order[i] = i
		}
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for i := range pool {
			pool[i] = i + 1
		}
		available := venues

		for i := 0; i+1 < participants; i += 2 {
			idx := rng.Intn(available)
			venue := pool[idx]
			pool[idx] = pool[available-1]
			available--

			g.Set(r, order[i], venue)
			g.Set(r, order[i+1], venue)
		}

		// 参赛者为奇数时，最后一个人轮空（格子保持为 0）
	}

	return g, nil
}

// CheckVenues 检查场地是否足够让每一轮的所有对局同时进行
func CheckVenues(participants, venues int) error {
	if required := (participants + 1) / 2; venues < required {
		return fmt.Errorf("%w: %d 名参赛者每轮需要 %d 个场地，但只有 %d 个", ErrInsufficientVenues, participants, required, venues)
	}
	return nil
}

/**
 * 计算赛程的适应度
 * 对每个参赛者统计：
 * 		1. 在同一场地相遇过的不同对手数量
 * 		2. 去过的不同场地数量
 * 轮空的格子不计入任何统计
 * 适应度取所有参赛者中两项的最小值（最大化最差者）
 */
func CalculateFitness(g *Grid) Fitness {
	n := g.Participants
	if n == 0 {
		return Fitness{}
	}

	// 场地编号压缩为出现顺序，分配的大小只与格子数量有关，与场地编号的大小无关
	venueIndex := make(map[int]int)
	for _, v := range g.Cells {
		if _, ok := venueIndex[v]; v > 0 && !ok {
			venueIndex[v] = len(venueIndex)
		}
	}
	venues := len(venueIndex)

	met := make([]bool, n*n)
	visited := make([]bool, n*venues)
	opponentCnt := make([]int, n)
	venueCnt := make([]int, n)

	venueToPlayers := make(map[int][]int)
	for r := 0; r < g.Rounds; r++ {
		clear(venueToPlayers)

		for p, venue := range g.Row(r) {
			if venue <= 0 {
				continue
			}
			venueToPlayers[venue] = append(venueToPlayers[venue], p)
		}

		for venue, players := range venueToPlayers {
			vi := venueIndex[venue]
			for _, player := range players {
				if !visited[player*venues+vi] {
					visited[player*venues+vi] = true
					venueCnt[player]++
				}
				for _, opponent := range players {
					if player == opponent || met[player*n+opponent] {
						continue
					}
					met[player*n+opponent] = true
					opponentCnt[player]++
				}
			}
		}
	}

	return fitnessFromCounts(opponentCnt, venueCnt)
}

func fitnessFromCounts(opponentCnt, venueCnt []int) Fitness {
	if len(opponentCnt) == 0 {
		return Fitness{}
	}
	f := Fitness{MinOpponents: opponentCnt[0], MinVenues: venueCnt[0]}
	for p := 1; p < len(opponentCnt); p++ {
		f.MinOpponents = min(f.MinOpponents, opponentCnt[p])
		f.MinVenues = min(f.MinVenues, venueCnt[p])
	}
	return f
}

// ValidatePairing 检查每一轮中每个非零场地恰好出现两次，且只有奇数个参赛者时才允许一人轮空
func ValidatePairing(g *Grid) error {
	if len(g.Cells) != g.Rounds*g.Participants {
		return fmt.Errorf("%w: 格子数量 %d 与 %dx%d 不符", ErrPairingViolated, len(g.Cells), g.Rounds, g.Participants)
	}
	for r := 0; r < g.Rounds; r++ {
		if err := validateRound(g.Row(r)); err != nil {
			return fmt.Errorf("第 %d 轮: %w", r+1, err)
		}
	}
	return nil
}

func validateRound(row []int) error {
	counts := make(map[int]int, len(row)/2+1)
	for _, venue := range row {
		if venue < 0 {
			return fmt.Errorf("%w: 非法的场地编号 %d", ErrPairingViolated, venue)
		}
		counts[venue]++
	}

	for venue, cnt := range counts {
		if venue == 0 {
			if cnt > 1 || len(row)%2 == 0 {
				return fmt.Errorf("%w: %d 名参赛者中有 %d 人轮空", ErrPairingViolated, len(row), cnt)
			}
			continue
		}
		if cnt != 2 {
			return fmt.Errorf("%w: 场地 %d 上有 %d 名参赛者", ErrPairingViolated, venue, cnt)
		}
	}
	return nil
}

// rankByFitness 返回按适应度降序排列的前 count 个下标，适应度相同时保持原有顺序
func rankByFitness(scores []Fitness, count int) []int {
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		return scores[idxs[i]].Compare(scores[idxs[j]]) > 0
	})
	return idxs[:min(count, len(idxs))]
}

// SelectBestSchedules 截断选择：保留适应度最高的 count 个赛程
func SelectBestSchedules(population []*Grid, scores []Fitness, count int) []*Grid {
	selected := make([]*Grid, 0, count)
	for _, idx := range rankByFitness(scores, count) {
		selected = append(selected, population[idx])
	}
	return selected
}

// Crossover 按轮交叉：每一轮以相同概率整行继承自其中一个父本，因此每一轮内部的配对不会被破坏
func Crossover(parent1, parent2 *Grid, rng *rand.Rand) *Grid {
	child := NewGrid(parent1.Rounds, parent1.Participants)
	for r := 0; r < child.Rounds; r++ {
		src := parent1
		if rng.Intn(2) == 1 {
			src = parent2
		}
		copy(child.Row(r), src.Row(r))
	}
	return child
}

// Mutation 对子代进行原地变异，变异后的赛程必须仍然满足配对约束
type Mutation interface {
	Mutate(child *Grid, rng *rand.Rand) error
}

// PairSwapMutation 以 Rate 的概率交换某一轮中两对参赛者的场地
type PairSwapMutation struct {
	Rate float64
}

func (m PairSwapMutation) Mutate(child *Grid, rng *rand.Rand) error {
	for r := 0; r < child.Rounds; r++ {
		if rng.Float64() >= m.Rate {
			continue
		}

		row := child.Row(r)
		if err := swapVenuePairs(row, rng); err != nil {
			return fmt.Errorf("第 %d 轮: %w", r+1, err)
		}
		if err := validateRound(row); err != nil {
			return fmt.Errorf("第 %d 轮变异后: %w", r+1, err)
		}
	}
	return nil
}

// swapVenuePairs 随机选出两对在不同场地比赛的参赛者，交换两对的场地
// 这一轮少于两对时什么也不做
func swapVenuePairs(row []int, rng *rand.Rand) error {
	playing := make([]int, 0, len(row))
	for p, venue := range row {
		if venue != 0 {
			playing = append(playing, p)
		}
	}
	if len(playing) < 4 {
		return nil
	}

	i1 := playing[rng.Intn(len(playing))]
	i2 := partnerOf(row, i1)
	if i2 < 0 {
		return fmt.Errorf("%w: 参赛者 %d 没有对手", ErrPairingViolated, i1)
	}

	others := make([]int, 0, len(playing)-2)
	for _, p := range playing {
		if row[p] != row[i1] {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return nil
	}

	i3 := others[rng.Intn(len(others))]
	i4 := partnerOf(row, i3)
	if i4 < 0 {
		return fmt.Errorf("%w: 参赛者 %d 没有对手", ErrPairingViolated, i3)
	}

	va, vb := row[i1], row[i3]
	row[i1], row[i2] = vb, vb
	row[i3], row[i4] = va, va
	return nil
}

// partnerOf 返回与 p 在同一场地的另一名参赛者，找不到时返回 -1
func partnerOf(row []int, p int) int {
	for j, venue := range row {
		if j != p && venue == row[p] {
			return j
		}
	}
	return -1
}

// GenerateNewPopulation 精英直接进入下一代，剩余位置由随机父本交叉、变异产生
func GenerateNewPopulation(selected []*Grid, size int, rng *rand.Rand, mutation Mutation) ([]*Grid, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: 没有可用于繁殖的父本", ErrInvalidPopulation)
	}

	newPop := make([]*Grid, 0, size)
	newPop = append(newPop, selected[:min(len(selected), size)]...)

	for len(newPop) < size {
		p1 := selected[rng.Intn(len(selected))]
		p2 := selected[rng.Intn(len(selected))]

		child := Crossover(p1, p2, rng)
		if err := mutation.Mutate(child, rng); err != nil {
			return nil, err
		}

		newPop = append(newPop, child)
	}

	return newPop, nil
}
