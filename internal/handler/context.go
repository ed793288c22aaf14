package handler

type ContextKey string

var (
	SubCtxKey     ContextKey = "sub"
	PopulationCtx ContextKey = "population"
)
