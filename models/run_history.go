package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
)

// SimulationRun is one row of simulation_run, parameters stay null until the run calibrates
type SimulationRun struct {
	Id           uuid.UUID   `db:"id"`
	Coin         string      `db:"coin"`
	VsCurrency   string      `db:"vs_currency"`
	Simulations  int32       `db:"simulations"`
	Steps        int32       `db:"steps"`
	Start        float64     `db:"start_value"`
	Seed         null.Int    `db:"seed"`
	Mean         null.Float  `db:"mean"`
	StdDev       null.Float  `db:"std_dev"`
	CurrentPrice null.Float  `db:"current_price"`
	Status       string      `db:"status"`
	ErrorMessage null.String `db:"error_message"`
	CreatedAt    time.Time   `db:"created_at"`
	CompletedAt  null.Time   `db:"completed_at"`
}

type SimulationBandRow struct {
	RunId       uuid.UUID `db:"run_id"`
	Step        int32     `db:"step"`
	Fifth       float64   `db:"fifth"`
	Fiftieth    float64   `db:"fiftieth"`
	NinetyFifth float64   `db:"ninety_fifth"`
}

// BandRows flattens a result into one row per step
func BandRows(runId uuid.UUID, result *SimulationResult) []*SimulationBandRow {
	res := make([]*SimulationBandRow, result.Steps())
	for i := range res {
		res[i] = &SimulationBandRow{
			RunId:       runId,
			Step:        int32(i),
			Fifth:       result.Fifth[i],
			Fiftieth:    result.Fiftieth[i],
			NinetyFifth: result.NinetyFifth[i],
		}
	}
	return res
}

// ResultFromBandRows rebuilds a result, rows are expected ordered by step
func ResultFromBandRows(rows []*SimulationBandRow) *SimulationResult {
	res := &SimulationResult{
		Fifth:       make(PercentileBand, len(rows)),
		Fiftieth:    make(PercentileBand, len(rows)),
		NinetyFifth: make(PercentileBand, len(rows)),
	}
	for i, r := range rows {
		res.Fifth[i] = r.Fifth
		res.Fiftieth[i] = r.Fiftieth
		res.NinetyFifth[i] = r.NinetyFifth
	}
	return res
}
