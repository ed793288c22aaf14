package domain

import "time"

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFinished  RunStatus = "finished"
	RunStatusFailed    RunStatus = "failed"
)

// RunRequest 通过消息队列发送给 worker 的排赛任务
type RunRequest struct {
	ID                 string `json:"id"`
	Participants       int    `json:"participants"`
	Rounds             int    `json:"rounds"`
	Venues             int    `json:"venues"`
	MaxGenerations     int    `json:"maxGenerations"`
	Seed               *int64 `json:"seed"` // 为空时使用随机种子，0 也是合法的种子
	ResumePopulationID *int64 `json:"resumePopulationID"` // 为空时从随机种群开始
	NotifyEmail        string `json:"notifyEmail"`
}

// RunProgress 保存在 redis 中的任务进度
type RunProgress struct {
	ID           string    `json:"id"`
	Status       RunStatus `json:"status"`
	Generation   int       `json:"generation"`
	BestFitness  int       `json:"bestFitness"`
	Best         *BestGrid `json:"best"`
	PopulationID *int64    `json:"populationID"` // 任务结束后保存的种群快照
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BestGrid 与 scheduler.Grid 的 JSON 结构一致，domain 包不依赖 scheduler
type BestGrid struct {
	Rounds       int   `json:"rounds"`
	Participants int   `json:"participants"`
	Cells        []int `json:"cells"`
}

func (p *RunProgress) Done() bool {
	switch p.Status {
	case RunStatusCancelled, RunStatusFinished, RunStatusFailed:
		return true
	}
	return false
}
