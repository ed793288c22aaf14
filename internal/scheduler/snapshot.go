package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
)

// Snapshot 将一代种群转换为与存储无关的快照，每个格子对应一个 (row, column, value)
func Snapshot(generation, venues int, population []*Grid) *domain.PopulationSnapshot {
	snapshot := &domain.PopulationSnapshot{
		Generation:  generation,
		Venues:      venues,
		Individuals: make([]domain.Individual, len(population)),
	}
	if len(population) > 0 {
		snapshot.Rounds = population[0].Rounds
		snapshot.Participants = population[0].Participants
	}

	for i, g := range population {
		genes := make([]domain.Gene, 0, len(g.Cells))
		for r := 0; r < g.Rounds; r++ {
			for p := 0; p < g.Participants; p++ {
				genes = append(genes, domain.Gene{Row: r, Column: p, Value: g.At(r, p)})
			}
		}
		snapshot.Individuals[i] = domain.Individual{
			Position: i,
			Genes:    genes,
		}
	}

	return snapshot
}

// GridFromGenes 按给定的规模重建赛程，基因必须恰好覆盖每一个格子
func GridFromGenes(genes []domain.Gene, rounds, participants int) (*Grid, error) {
	if rounds < 1 || participants < 1 {
		return nil, fmt.Errorf("%w: 非法的规模 %dx%d", ErrInvalidPopulation, rounds, participants)
	}
	// 规模可能来自存储中的数据，分配之前先用基因数量约束
	if rounds > len(genes) || participants > len(genes) || rounds*participants != len(genes) {
		return nil, fmt.Errorf("%w: %dx%d 的赛程与 %d 个基因不匹配", ErrInvalidPopulation, rounds, participants, len(genes))
	}

	g := NewGrid(rounds, participants)
	seen := make([]bool, len(genes))
	for _, gene := range genes {
		if gene.Row < 0 || gene.Row >= rounds || gene.Column < 0 || gene.Column >= participants {
			return nil, fmt.Errorf("%w: 非法的坐标 (%d, %d)", ErrInvalidPopulation, gene.Row, gene.Column)
		}
		idx := gene.Row*participants + gene.Column
		if seen[idx] {
			return nil, fmt.Errorf("%w: 重复的坐标 (%d, %d)", ErrInvalidPopulation, gene.Row, gene.Column)
		}
		seen[idx] = true
		g.Cells[idx] = gene.Value
	}
	return g, nil
}

// ToBestGrid 转换为进度信息中使用的结构
func (g *Grid) ToBestGrid() *domain.BestGrid {
	c := g.Clone()
	return &domain.BestGrid{
		Rounds:       c.Rounds,
		Participants: c.Participants,
		Cells:        c.Cells,
	}
}
