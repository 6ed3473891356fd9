package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/hamsalma/finance-site/internal/api/response"
	"github.com/hamsalma/finance-site/internal/domain/market"
)

// UniverseHandler lists the tickers offered in the form
type UniverseHandler struct {
	universe *market.Universe
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(universe *market.Universe) *UniverseHandler {
	return &UniverseHandler{universe: universe}
}

type classEntry struct {
	Actif   market.AssetClass   `json:"actif"`
	Defaut  string              `json:"defaut"`
	Tickers []market.TickerInfo `json:"tickers"`
}

// List handles GET /api/universe
func (h *UniverseHandler) List(c *gin.Context) {
	classes := make([]classEntry, 0, len(market.AssetClasses))
	for _, class := range market.AssetClasses {
		classes = append(classes, classEntry{
			Actif:   class,
			Defaut:  h.universe.Default(class),
			Tickers: h.universe.Tickers(class),
		})
	}

	response.Success(c, gin.H{"classes": classes})
}
