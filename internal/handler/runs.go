package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/runner"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Participants       int    `json:"participants" validate:"required,min=2"`
		Rounds             int    `json:"rounds" validate:"required,min=1"`
		Venues             int    `json:"venues" validate:"required,min=1"`
		MaxGenerations     int    `json:"maxGenerations" validate:"omitempty,min=1"`
		Seed               *int64 `json:"seed"`
		ResumePopulationID *int64 `json:"resumePopulationID" validate:"omitempty,min=1"`
		NotifyEmail        string `json:"notifyEmail" validate:"omitempty,email"`
	}
	if !h.readJSON(w, r, &req) {
		return
	}

	params := scheduler.DefaultParameters(req.Participants, req.Rounds, req.Venues)
	params.PopulationSize = h.config.Scheduler.PopulationSize
	params.EliteCount = h.config.Scheduler.EliteCount
	params.MutationRate = h.config.Scheduler.MutationRate
	if err := params.Validate(); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if err := scheduler.CheckVenues(req.Participants, req.Venues); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	run := &domain.RunRequest{
		ID:                 uuid.NewString(),
		Participants:       req.Participants,
		Rounds:             req.Rounds,
		Venues:             req.Venues,
		MaxGenerations:     req.MaxGenerations,
		Seed:               req.Seed,
		ResumePopulationID: req.ResumePopulationID,
		NotifyEmail:        req.NotifyEmail,
	}

	progress := &domain.RunProgress{
		ID:     run.ID,
		Status: domain.RunStatusQueued,
	}
	if err := h.runs.SaveProgress(r.Context(), progress); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 发送任务到消息队列中，由 worker 执行
	if err := h.runQueue.Publish(r.Context(), run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "排赛任务已提交", progress)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	progress, err := h.runs.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrRunNotFound):
			h.errorResponse(w, r, "排赛任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排赛任务成功", progress)
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	progress, err := h.runs.GetProgress(r.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrRunNotFound):
			h.errorResponse(w, r, "排赛任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if progress.Done() {
		h.errorResponse(w, r, "排赛任务已结束")
		return
	}

	if err := h.runs.RequestCancel(r.Context(), runID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已请求取消排赛任务", nil)
}
