package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/render"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

func main() {
	var n, r, k, generations, workers int
	var seed int64

	flag.IntVar(&n, "n", 8, "参赛者数量")
	flag.IntVar(&r, "r", 7, "轮数")
	flag.IntVar(&k, "k", 4, "场地数量")
	flag.IntVar(&generations, "generations", 100, "最大代数")
	flag.IntVar(&workers, "workers", 0, "并行评估的 goroutine 数量，0 表示使用 GOMAXPROCS")
	flag.Int64Var(&seed, "seed", 0, "随机种子，不指定时使用当前时间")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	params := scheduler.DefaultParameters(n, r, k)
	params.Workers = workers
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			params.Seed = &seed
		}
	})

	s, err := scheduler.New(params)
	if err != nil {
		logger.Error("无效的参数", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CTRL+C 时停止进化并输出当前最佳赛程
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	best, err := s.Run(ctx, generations, func(generation, bestFitness int, _ *scheduler.Grid) {
		logger.Info("完成一代", slog.Int("generation", generation), slog.Int("bestFitness", bestFitness))
	})
	if err != nil {
		logger.Error("排赛失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if ctx.Err() != nil {
		logger.Info("已取消，输出当前最佳赛程")
	}

	fitness := scheduler.CalculateFitness(best)
	fmt.Printf("最佳适应度: %d（最少对手数 %d，最少场地数 %d）\n\n", fitness.Score(), fitness.MinOpponents, fitness.MinVenues)
	fmt.Print(render.Rounds(best))
	fmt.Println()
	fmt.Print(render.Table(best, k))
}
