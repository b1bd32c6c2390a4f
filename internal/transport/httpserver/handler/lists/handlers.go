package lists

import (
	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/pkg/logger"
)

type Handlers struct {
	Lists *listsdomain.Service
	log   logger.Logger
}

func New(lists *listsdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Lists: lists,
		log:   logger.OrNop(log),
	}
}
