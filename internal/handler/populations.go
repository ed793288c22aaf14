package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

type populationIndividual struct {
	Position int              `json:"position"`
	Fitness  int              `json:"fitness"`
	Schedule *domain.BestGrid `json:"schedule"`
}

type populationDetail struct {
	*domain.PopulationSnapshot
	Individuals []populationIndividual `json:"individuals"`
}

func (h *Handler) GetAllPopulations(w http.ResponseWriter, r *http.Request) {
	populations, err := h.populations.GetAllPopulations()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有种群快照成功", populations)
}

func (h *Handler) GetPopulation(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(PopulationCtx).(int64)

	snapshot, err := h.populations.GetPopulationSnapshot(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "种群快照不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 将基因还原为赛程表，并附上每个个体的适应度
	detail := populationDetail{
		PopulationSnapshot: snapshot,
		Individuals:        make([]populationIndividual, 0, len(snapshot.Individuals)),
	}
	for _, individual := range snapshot.Individuals {
		g, err := scheduler.GridFromGenes(individual.Genes, snapshot.Rounds, snapshot.Participants)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		detail.Individuals = append(detail.Individuals, populationIndividual{
			Position: individual.Position,
			Fitness:  scheduler.CalculateFitness(g).Score(),
			Schedule: g.ToBestGrid(),
		})
	}

	h.successResponse(w, r, "获取种群快照成功", detail)
}

func (h *Handler) DeletePopulation(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(PopulationCtx).(int64)

	if err := h.populations.DeletePopulation(id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "种群快照不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除种群快照成功", nil)
}

func (h *Handler) DeleteAllPopulations(w http.ResponseWriter, r *http.Request) {
	if err := h.populations.DeleteAllPopulations(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除所有种群快照成功", nil)
}
