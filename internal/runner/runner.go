package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/render"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

type ProgressStore interface {
	SaveProgress(ctx context.Context, progress *domain.RunProgress) error
	IsCancelRequested(ctx context.Context, runID string) (bool, error)
}

type SnapshotStore interface {
	InsertPopulationSnapshot(snapshot *domain.PopulationSnapshot) error
	GetPopulationSnapshot(id int64) (*domain.PopulationSnapshot, error)
}

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Delivery 消息确认，amqp.Delivery 实现了这个接口
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Runner 在 worker 中执行排赛任务
type Runner struct {
	cfg          *config.Config
	progress     ProgressStore
	snapshots    SnapshotStore
	mail         Publisher
	pollInterval time.Duration
}

func New(cfg *config.Config, progress ProgressStore, snapshots SnapshotStore, mail Publisher) *Runner {
	pollInterval := time.Duration(cfg.Scheduler.CancelPollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Runner{
		cfg:          cfg,
		progress:     progress,
		snapshots:    snapshots,
		mail:         mail,
		pollInterval: pollInterval,
	}
}

// Execute 执行一个排赛任务，直到完成、被取消或出错
// 任务的最终状态总会写入 ProgressStore，返回的错误只用于 worker 记录日志
func (r *Runner) Execute(ctx context.Context, req *domain.RunRequest) error {
	logger := slog.With("run", req.ID)

	progress := &domain.RunProgress{
		ID:     req.ID,
		Status: domain.RunStatusRunning,
	}

	fail := func(err error) error {
		progress.Status = domain.RunStatusFailed
		progress.Error = err.Error()
		r.saveProgress(ctx, progress)
		r.notify(ctx, req, progress, nil)
		return err
	}

	params := r.parameters(req)
	s, err := scheduler.New(params)
	if err != nil {
		return fail(err)
	}

	maxGenerations := req.MaxGenerations
	if maxGenerations == 0 {
		maxGenerations = r.cfg.Scheduler.DefaultMaxGenerations
	}

	var snapshot *domain.PopulationSnapshot
	if req.ResumePopulationID != nil {
		snapshot, err = r.snapshots.GetPopulationSnapshot(*req.ResumePopulationID)
		if err != nil {
			return fail(fmt.Errorf("无法读取种群快照 %d: %w", *req.ResumePopulationID, err))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 任务排队期间可能已经被取消，第一次轮询之前先检查一次
	if requested, err := r.progress.IsCancelRequested(ctx, req.ID); err != nil {
		logger.Error("无法读取取消标记", "error", err)
	} else if requested {
		logger.Info("任务在开始前已被取消")
		cancel()
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		r.watchCancel(runCtx, req.ID, cancel)
	}()

	r.saveProgress(ctx, progress)
	logger.Info("开始排赛", "participants", params.Participants, "rounds", params.Rounds, "venues", params.Venues, "maxGenerations", maxGenerations)

	onGeneration := func(generation, bestFitness int, best *scheduler.Grid) {
		progress.Generation = generation
		progress.BestFitness = bestFitness
		progress.Best = best.ToBestGrid()
		r.saveProgress(ctx, progress)
		logger.Debug("完成一代", "generation", generation, "bestFitness", bestFitness)
	}

	var best *scheduler.Grid
	if snapshot != nil {
		best, err = s.Resume(runCtx, snapshot, maxGenerations, onGeneration)
	} else {
		best, err = s.Run(runCtx, maxGenerations, onGeneration)
	}

	cancelled := runCtx.Err() != nil
	cancel()
	<-watchDone

	if err != nil {
		return fail(err)
	}

	// 保存最后一代种群，之后可以从这里继续
	generation, pop := s.LastPopulation()
	saved := scheduler.Snapshot(generation, params.Venues, pop)
	if err := r.snapshots.InsertPopulationSnapshot(saved); err != nil {
		logger.Error("无法保存种群快照", "error", err)
	} else {
		progress.PopulationID = &saved.ID
	}

	progress.Status = domain.RunStatusFinished
	if cancelled {
		progress.Status = domain.RunStatusCancelled
	}
	progress.Generation = generation
	progress.BestFitness = scheduler.CalculateFitness(best).Score()
	progress.Best = best.ToBestGrid()
	r.saveProgress(ctx, progress)
	r.notify(ctx, req, progress, best)

	logger.Info("排赛结束", "status", progress.Status, "generation", generation, "bestFitness", progress.BestFitness)
	return nil
}

// HandleMessage 处理队列中的一条排赛任务
// worker 正在关闭时消息重新入队，交给其他 worker 执行
func (r *Runner) HandleMessage(ctx context.Context, body []byte, d Delivery) {
	if ctx.Err() != nil {
		_ = d.Nack(false, true)
		return
	}

	req := &domain.RunRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		slog.Error("排赛任务反序列化失败", "error", err)
		_ = d.Nack(false, false)
		return
	}

	slog.Info("收到排赛任务", "run", req.ID)
	if err := r.Execute(ctx, req); err != nil {
		slog.Error("排赛任务失败", "run", req.ID, "error", err)
	}

	// 失败的任务已经记录了状态，不需要重新入队
	_ = d.Ack(false)
}

func (r *Runner) parameters(req *domain.RunRequest) *scheduler.Parameters {
	params := scheduler.DefaultParameters(req.Participants, req.Rounds, req.Venues)
	params.PopulationSize = r.cfg.Scheduler.PopulationSize
	params.EliteCount = r.cfg.Scheduler.EliteCount
	params.MutationRate = r.cfg.Scheduler.MutationRate
	params.Workers = r.cfg.Scheduler.Workers
	params.Seed = req.Seed
	return params
}

// watchCancel 定期检查 redis 中的取消标记，发现后取消任务的 context
func (r *Runner) watchCancel(ctx context.Context, runID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := r.progress.IsCancelRequested(ctx, runID)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("无法读取取消标记", "run", runID, "error", err)
				}
				continue
			}
			if requested {
				slog.Info("收到取消请求", "run", runID)
				cancel()
				return
			}
		}
	}
}

// 任务被取消时仍然需要写入最终状态，因此不跟随 ctx 的取消
func (r *Runner) saveProgress(ctx context.Context, progress *domain.RunProgress) {
	progress.UpdatedAt = time.Now()
	if err := r.progress.SaveProgress(context.WithoutCancel(ctx), progress); err != nil {
		slog.Error("无法保存任务进度", "run", progress.ID, "error", err)
	}
}

func (r *Runner) notify(ctx context.Context, req *domain.RunRequest, progress *domain.RunProgress, best *scheduler.Grid) {
	if req.NotifyEmail == "" || r.mail == nil {
		return
	}

	data := domain.RunFinishedMailData{
		RunID:       req.ID,
		Status:      string(progress.Status),
		Generation:  progress.Generation,
		BestFitness: progress.BestFitness,
	}
	if best != nil {
		data.Table = render.Table(best, req.Venues)
	}

	msg := domain.MailMessage{
		Type: "run_finished",
		To:   req.NotifyEmail,
		Data: data,
	}
	if err := r.mail.Publish(context.WithoutCancel(ctx), msg); err != nil {
		slog.Error("无法发送邮件消息", "run", req.ID, "error", err)
	}
}
