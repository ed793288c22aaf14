package domain

import "time"

// Gene: 赛程表中的一个格子
type Gene struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Value  int `json:"value"`
}

type Individual struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	Genes    []Gene `json:"genes"`
}

// PopulationSnapshot 某一代的完整种群，列表接口中 Individuals 为空
type PopulationSnapshot struct {
	ID           int64        `json:"id"`
	Generation   int          `json:"generation"`
	Participants int          `json:"participants"`
	Rounds       int          `json:"rounds"`
	Venues       int          `json:"venues"`
	Individuals  []Individual `json:"individuals,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
