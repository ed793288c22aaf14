package scheduler

import "fmt"

// Grid: 整个赛程表，按行优先存放 Rounds x Participants 个格子
// 格子的值为场地编号，0 表示该参赛者在这一轮轮空
type Grid struct {
	Rounds       int   `json:"rounds"`
	Participants int   `json:"participants"`
	Cells        []int `json:"cells"`
}

func NewGrid(rounds, participants int) *Grid {
	return &Grid{
		Rounds:       rounds,
		Participants: participants,
		Cells:        make([]int, rounds*participants),
	}
}

func (g *Grid) At(round, participant int) int {
	return g.Cells[round*g.Participants+participant]
}

func (g *Grid) Set(round, participant, venue int) {
	g.Cells[round*g.Participants+participant] = venue
}

// Row 返回第 round 轮的切片，修改它会直接修改 Grid
func (g *Grid) Row(round int) []int {
	return g.Cells[round*g.Participants : (round+1)*g.Participants]
}

func (g *Grid) Clone() *Grid {
	cells := make([]int, len(g.Cells))
	copy(cells, g.Cells)
	return &Grid{
		Rounds:       g.Rounds,
		Participants: g.Participants,
		Cells:        cells,
	}
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)%v", g.Rounds, g.Participants, g.Cells)
}

// Fitness: 最差参赛者的对手数量与场地数量
type Fitness struct {
	MinOpponents int `json:"minOpponents"`
	MinVenues    int `json:"minVenues"`
}

// Score 只在 MinVenues < 1000（即轮数不超过 999）时与 Compare 的顺序一致
func (f Fitness) Score() int {
	return f.MinOpponents*1000 + f.MinVenues
}

// Compare 按 (MinOpponents, MinVenues) 的字典序比较
func (f Fitness) Compare(other Fitness) int {
	switch {
	case f.MinOpponents != other.MinOpponents:
		if f.MinOpponents < other.MinOpponents {
			return -1
		}
		return 1
	case f.MinVenues < other.MinVenues:
		return -1
	case f.MinVenues > other.MinVenues:
		return 1
	}
	return 0
}

// 遗传算法参数
type Parameters struct {
	Participants   int     // 参赛者数量 N
	Rounds         int     // 轮数 R
	Venues         int     // 场地数量 K
	PopulationSize int     // 种群大小
	EliteCount     int     // 精英数量
	MutationRate   float64 // 每一轮发生变异的概率
	Workers        int     // 并行评估的 goroutine 数量，<= 0 时使用 GOMAXPROCS
	Seed           *int64  // 随机种子，为 nil 时使用当前时间
}

func DefaultParameters(participants, rounds, venues int) *Parameters {
	return &Parameters{
		Participants:   participants,
		Rounds:         rounds,
		Venues:         venues,
		PopulationSize: 100,
		EliteCount:     20,
		MutationRate:   0.1,
	}
}

func (p *Parameters) Validate() error {
	if p.Participants < 2 {
		return fmt.Errorf("%w: 参赛者数量至少为 2（得到 %d）", ErrInvalidConfiguration, p.Participants)
	}
	if p.Rounds < 1 {
		return fmt.Errorf("%w: 轮数至少为 1（得到 %d）", ErrInvalidConfiguration, p.Rounds)
	}
	if p.Venues < 1 {
		return fmt.Errorf("%w: 场地数量至少为 1（得到 %d）", ErrInvalidConfiguration, p.Venues)
	}
	if p.EliteCount < 1 || p.EliteCount > p.PopulationSize {
		return fmt.Errorf("%w: 精英数量必须在 [1, %d] 之间（得到 %d）", ErrInvalidConfiguration, p.PopulationSize, p.EliteCount)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间（得到 %f）", ErrInvalidConfiguration, p.MutationRate)
	}
	return nil
}

// ProgressFunc 在每一代选择完成后、繁殖开始前被同步调用
// best 在回调返回后可能被引擎复用，需要保留的话请 Clone
type ProgressFunc func(generation int, bestFitness int, best *Grid)
