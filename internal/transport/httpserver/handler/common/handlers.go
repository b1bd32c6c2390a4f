package common

import (
	"family-lists-go/pkg/logger"
)

type Handlers struct {
	log logger.Logger
}

func New(log logger.Logger) *Handlers {
	return &Handlers{log: logger.OrNop(log)}
}
