package queries

import (
	"embed"
	"fmt"
)

//go:embed schema/*.sql delete/*.sql insert/*.sql select/*.sql update/*.sql
var Files embed.FS

// ^^^ the sql files are compiled into the binary, paths below are relative to this package

type SchemaQueries struct {
	Tables string
}

type DeleteQueries struct {
	CoinMetadata  string
	SimulationRun string
}

type InsertQueries struct {
	CoinMetadata  string
	SimulationRun string
}

type SelectQueries struct {
	CoinMetadata           string
	MostRecentTimestamp    string
	PriceHistory           string
	SimulationBandsByRunId string
	SimulationRunById      string
}

type UpdateQueries struct {
	LastRefreshed string
	SimulationRun string
}

type QueryHelperStruct struct {
	Schema SchemaQueries
	Delete DeleteQueries
	Insert InsertQueries
	Select SelectQueries
	Update UpdateQueries
}

var QueryHelper = QueryHelperStruct{
	Schema: SchemaQueries{
		Tables: "schema/tables.sql",
	},
	Delete: DeleteQueries{
		CoinMetadata:  "delete/coin_metadata.sql",
		SimulationRun: "delete/simulation_run.sql",
	},
	Insert: InsertQueries{
		CoinMetadata:  "insert/coin_metadata.sql",
		SimulationRun: "insert/simulation_run.sql",
	},
	Select: SelectQueries{
		CoinMetadata:           "select/coin_metadata.sql",
		MostRecentTimestamp:    "select/most_recent_timestamp.sql",
		PriceHistory:           "select/price_history.sql",
		SimulationBandsByRunId: "select/simulation_bands_by_run_id.sql",
		SimulationRunById:      "select/simulation_run_by_id.sql",
	},
	Update: UpdateQueries{
		LastRefreshed: "update/last_refreshed.sql",
		SimulationRun: "update/simulation_run.sql",
	},
}

func Get(path string) string {
	content, err := Files.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("error reading query file: %w", err))
	}

	return string(content)
}
