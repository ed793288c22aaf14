package scheduler

import "errors"

var (
	ErrInvalidConfiguration = errors.New("scheduler: 无效的配置")
	ErrInsufficientVenues   = errors.New("scheduler: 场地数量不足以容纳每一轮的所有对局")
	ErrPairingViolated      = errors.New("scheduler: 赛程违反了两两配对约束")
	ErrInvalidPopulation    = errors.New("scheduler: 无效的种群")
)
