package models

import (
	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

// ForecastRequest is what a driver (cli or http) asks the forecast service for
type ForecastRequest struct {
	Coin        string   `json:"coin" validate:"required,max=64"`
	Simulations int      `json:"simulations" validate:"required,min=1,max=1000000"`
	Steps       int      `json:"steps" validate:"required,min=1,max=3650"`
	Start       float64  `json:"start" validate:"omitempty,gt=0"` // zero means normalized growth space (1.0)
	Seed        null.Int `json:"seed"`
}

// ForecastResponse wraps the simulation result with what it was calibrated from
type ForecastResponse struct {
	RunId        uuid.UUID              `json:"runId"`
	Coin         string                 `json:"coin"`
	VsCurrency   string                 `json:"vsCurrency"`
	Simulations  int                    `json:"simulations"`
	Steps        int                    `json:"steps"`
	Parameters   DistributionParameters `json:"parameters"`
	CurrentPrice float64                `json:"currentPrice"` // the factor bands were scaled by, 1.0 without a known price
	Status       string                 `json:"status,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Result       *SimulationResult      `json:"result"`
}
