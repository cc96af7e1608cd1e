package handlers

import (
	"github.com/propos4l/proposal-engine/internal/service/ingest"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

type Handlers struct {
	Proposal *ProposalHandler
	Progress *ProgressHandler
}

func NewHandlers(service ingest.Service, logger logger.Logger) *Handlers {
	return &Handlers{
		Proposal: NewProposalHandler(service, logger),
		Progress: NewProgressHandler(service, logger),
	}
}
