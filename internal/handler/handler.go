package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type PopulationRepository interface {
	GetAllPopulations() ([]*domain.PopulationSnapshot, error)
	GetPopulationSnapshot(id int64) (*domain.PopulationSnapshot, error)
	DeletePopulation(id int64) error
	DeleteAllPopulations() error
}

// RunStore 保存排赛任务的进度和取消标记，由 runner.RedisProgressStore 实现
type RunStore interface {
	SaveProgress(ctx context.Context, progress *domain.RunProgress) error
	GetProgress(ctx context.Context, runID string) (*domain.RunProgress, error)
	RequestCancel(ctx context.Context, runID string) error
}

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	populations PopulationRepository
	runs        RunStore
	runQueue    Publisher
	translator  ut.Translator
	adminHash   []byte

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, populations PopulationRepository, runs RunStore, runQueue Publisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	// 管理员只有一个，密码来自环境变量，启动时计算一次哈希
	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		populations: populations,
		runs:        runs,
		runQueue:    runQueue,
		translator:  trans,
		adminHash:   adminHash,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.CreateRun)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRun)
				r.Post("/cancel", h.CancelRun)
			})
		})

		r.Route("/populations", func(r chi.Router) {
			r.Get("/", h.GetAllPopulations)
			r.Delete("/", h.DeleteAllPopulations)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.population)
				r.Get("/", h.GetPopulation)
				r.Delete("/", h.DeletePopulation)
			})
		})
	})
}
