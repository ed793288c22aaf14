package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var n int
	var randomSeed int64

	flag.IntVar(&n, "n", 5, "要插入的种群快照数量")
	flag.Int64Var(&randomSeed, "seed", 0, "随机种子，不指定时使用当前时间")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if n <= 0 {
		logger.Error("请输入合法的种群快照数量")
		os.Exit(1)
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		seedSet = seedSet || f.Name == "seed"
	})
	if !seedSet {
		randomSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(randomSeed))

	cnt := 0
	for i := 0; i < n; i++ {
		snapshot, err := seed.RandomPopulationSnapshot(rng, cfg.Scheduler.PopulationSize)
		if err != nil {
			logger.Error("无法生成随机种群", slog.String("error", err.Error()))
			continue
		}

		if err := repo.InsertPopulationSnapshot(snapshot); err != nil {
			logger.Error("无法插入种群快照", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	logger.Info("插入种群快照成功", slog.Int("count", cnt), slog.Int64("seed", randomSeed))
}
