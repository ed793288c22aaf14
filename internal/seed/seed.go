package seed

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

// RandomDimensions 随机生成一组可行的赛事规模：N 在 [2, 16]，R 在 [1, 10]，K 在 [ceil(N/2), ceil(N/2)+3]
func RandomDimensions(rng *rand.Rand) (participants, rounds, venues int) {
	participants = rng.Intn(15) + 2
	rounds = rng.Intn(10) + 1
	venues = (participants+1)/2 + rng.Intn(4)
	return participants, rounds, venues
}

// RandomPopulationSnapshot 生成一个由随机赛程组成的种群快照，用于开发环境填充数据
func RandomPopulationSnapshot(rng *rand.Rand, size int) (*domain.PopulationSnapshot, error) {
	participants, rounds, venues := RandomDimensions(rng)

	population := make([]*scheduler.Grid, size)
	for i := range population {
		g, err := scheduler.CreateRandomSchedule(participants, rounds, venues, rng)
		if err != nil {
			return nil, err
		}
		population[i] = g
	}

	return scheduler.Snapshot(rng.Intn(100)+1, venues, population), nil
}
