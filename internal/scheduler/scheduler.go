package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Scheduler 不是并发安全的，同一时间只能有一个 Run / Resume 在执行
type Scheduler struct {
	parameters *Parameters
	mutation   Mutation
	workers    int
	rng        *rand.Rand // 只在编排 goroutine 中使用

	lastGeneration int
	lastPopulation []*Grid
}

func New(parameters *Parameters) (*Scheduler, error) {
	if parameters == nil {
		return nil, fmt.Errorf("%w: 参数为空", ErrInvalidConfiguration)
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if parameters.Seed != nil {
		seed = *parameters.Seed
	}

	workers := parameters.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Scheduler{
		parameters: parameters,
		mutation:   PairSwapMutation{Rate: parameters.MutationRate},
		workers:    workers,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Run 从随机种群开始迭代 maxGenerations 代，返回最后一次评估的那一代中的最优赛程
// ctx 被取消时，在当前代的回调结束后立即返回该代的最优赛程，取消不视为错误
func (s *Scheduler) Run(ctx context.Context, maxGenerations int, onGeneration ProgressFunc) (*Grid, error) {
	if maxGenerations < 1 {
		return nil, fmt.Errorf("%w: 最大迭代次数至少为 1（得到 %d）", ErrInvalidConfiguration, maxGenerations)
	}

	pop, err := s.initPopulation()
	if err != nil {
		return nil, err
	}

	return s.evolve(ctx, 0, pop, maxGenerations, onGeneration)
}

// Resume 从保存的种群快照继续迭代，代数从快照的代数接着往后数
func (s *Scheduler) Resume(ctx context.Context, snapshot *domain.PopulationSnapshot, maxGenerations int, onGeneration ProgressFunc) (*Grid, error) {
	if maxGenerations < 1 {
		return nil, fmt.Errorf("%w: 最大迭代次数至少为 1（得到 %d）", ErrInvalidConfiguration, maxGenerations)
	}

	pop, err := s.populationFromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	return s.evolve(ctx, snapshot.Generation, pop, maxGenerations, onGeneration)
}

// LastPopulation 返回最后一次评估的代数以及该代种群的拷贝
func (s *Scheduler) LastPopulation() (int, []*Grid) {
	pop := make([]*Grid, len(s.lastPopulation))
	for i, g := range s.lastPopulation {
		pop[i] = g.Clone()
	}
	return s.lastGeneration, pop
}

func (s *Scheduler) Parameters() Parameters {
	return *s.parameters
}

func (s *Scheduler) evolve(ctx context.Context, startGeneration int, pop []*Grid, maxGenerations int, onGeneration ProgressFunc) (*Grid, error) {
	var best *Grid
	generation := startGeneration

	for gen := 0; gen < maxGenerations; gen++ {
		// 评估（并行）
		scores := s.evaluate(pop)

		// 选择
		ranked := rankByFitness(scores, s.parameters.EliteCount)
		selected := make([]*Grid, len(ranked))
		for i, idx := range ranked {
			selected[i] = pop[idx]
		}
		best = selected[0]
		bestFitness := scores[ranked[0]]
		generation = startGeneration + gen + 1

		cancelled := ctx.Err() != nil

		if onGeneration != nil {
			onGeneration(generation, bestFitness.Score(), best)
		}

		// 回调中发起的取消同样在繁殖之前生效
		if cancelled || ctx.Err() != nil {
			break
		}

		// 最后一代不再繁殖
		if gen+1 == maxGenerations {
			break
		}

		next, err := GenerateNewPopulation(selected, s.parameters.PopulationSize, s.rng, s.mutation)
		if err != nil {
			return nil, err
		}
		pop = next
	}

	s.lastGeneration = generation
	s.lastPopulation = pop

	return best, nil
}

// initPopulation 并行生成初始种群，第 i 个个体使用由主随机源派生出的独立随机源
func (s *Scheduler) initPopulation() ([]*Grid, error) {
	p := s.parameters
	base := s.rng.Int63()
	pop := make([]*Grid, p.PopulationSize)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range pop {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(deriveSeed(base, int64(i))))
			schedule, err := CreateRandomSchedule(p.Participants, p.Rounds, p.Venues, rng)
			if err != nil {
				return err
			}
			pop[i] = schedule
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pop, nil
}

// evaluate 并行计算适应度，每个 goroutine 只写自己下标的位置
func (s *Scheduler) evaluate(pop []*Grid) []Fitness {
	scores := make([]Fitness, len(pop))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range pop {
		g.Go(func() error {
			scores[i] = CalculateFitness(pop[i])
			return nil
		})
	}
	_ = g.Wait()

	return scores
}

func (s *Scheduler) populationFromSnapshot(snapshot *domain.PopulationSnapshot) ([]*Grid, error) {
	p := s.parameters
	if snapshot == nil {
		return nil, fmt.Errorf("%w: 快照为空", ErrInvalidPopulation)
	}
	if len(snapshot.Individuals) != p.PopulationSize {
		return nil, fmt.Errorf("%w: 快照中有 %d 个个体，需要 %d 个", ErrInvalidPopulation, len(snapshot.Individuals), p.PopulationSize)
	}

	if snapshot.Rounds != p.Rounds || snapshot.Participants != p.Participants {
		return nil, fmt.Errorf("%w: 快照的规模为 %dx%d，需要 %dx%d", ErrInvalidPopulation, snapshot.Rounds, snapshot.Participants, p.Rounds, p.Participants)
	}

	pop := make([]*Grid, len(snapshot.Individuals))
	for i, individual := range snapshot.Individuals {
		g, err := GridFromGenes(individual.Genes, p.Rounds, p.Participants)
		if err != nil {
			return nil, fmt.Errorf("个体 %d: %w", i, err)
		}
		for _, venue := range g.Cells {
			if venue < 0 || venue > p.Venues {
				return nil, fmt.Errorf("%w: 个体 %d 使用了不存在的场地 %d", ErrInvalidPopulation, i, venue)
			}
		}
		if err := ValidatePairing(g); err != nil {
			return nil, fmt.Errorf("%w: 个体 %d: %w", ErrInvalidPopulation, i, err)
		}
		pop[i] = g
	}

	return pop, nil
}
