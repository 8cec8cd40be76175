package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	m "mc.forecast/models"
	q "mc.forecast/queries"
)

func (pg *Postgres) InsertSimulationRun(ctx context.Context, run *m.SimulationRun) error {
	args := pgx.NamedArgs{
		"id":          run.Id,
		"coin":        run.Coin,
		"vs_currency": run.VsCurrency,
		"simulations": run.Simulations,
		"steps":       run.Steps,
		"start_value": run.Start,
		"seed":        run.Seed.Ptr(),
		"status":      run.Status,
	}

	if err := pg.db.QueryRow(ctx, q.Get(q.QueryHelper.Insert.SimulationRun), args).Scan(&run.CreatedAt); err != nil {
		return fmt.Errorf("error inserting simulation run: %w", err)
	}
	return nil
}

func (pg *Postgres) UpdateSimulationRunAsFailure(ctx context.Context, id uuid.UUID, errorMessage string) error {
	cleanErrorMessage := strings.TrimSpace(errorMessage)
	if cleanErrorMessage == "" {
		return fmt.Errorf("error message is required if simulation run is failing, occurred in %s", id)
	}

	return pg.updateSimulationRun(ctx, nil, pgx.NamedArgs{
		"id":            id,
		"status":        m.RunStatusFailure,
		"error_message": cleanErrorMessage,
		"mean":          nil,
		"std_dev":       nil,
		"current_price": nil,
	})
}

func (pg *Postgres) UpdateSimulationRunAsSuccess(ctx context.Context, id uuid.UUID, params m.DistributionParameters, currentPrice null.Float, tx pgx.Tx) error {
	return pg.updateSimulationRun(ctx, tx, pgx.NamedArgs{
		"id":            id,
		"status":        m.RunStatusSuccess,
		"error_message": nil,
		"mean":          params.Mean,
		"std_dev":       params.StdDev,
		"current_price": currentPrice.Ptr(),
	})
}

func (pg *Postgres) updateSimulationRun(ctx context.Context, tx pgx.Tx, args pgx.NamedArgs) error {
	if err := pg.exec(ctx, tx, q.Get(q.QueryHelper.Update.SimulationRun), args); err != nil {
		return fmt.Errorf("error updating simulation run: %w", err)
	}
	return nil
}

func (pg *Postgres) InsertSimulationBands(ctx context.Context, runId uuid.UUID, result *m.SimulationResult, tx pgx.Tx) (int64, error) {
	rows := m.BandRows(runId, result)
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{[16]byte(r.RunId), r.Step, r.Fifth, r.Fiftieth, r.NinetyFifth}
	}

	columns := []string{"run_id", "step", "fifth", "fiftieth", "ninety_fifth"}
	ct, err := pg.BulkInsert(ctx, "simulation_band", columns, data, tx)
	if err != nil {
		return 0, fmt.Errorf("error bulk inserting simulation bands for %s: %w", runId, err)
	}
	return ct, nil
}

// SaveSimulationResult writes the bands and marks the run successful together
func (pg *Postgres) SaveSimulationResult(ctx context.Context, id uuid.UUID, params m.DistributionParameters, currentPrice null.Float, result *m.SimulationResult) error {
	return pg.inTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := pg.InsertSimulationBands(ctx, id, result, tx); err != nil {
			return err
		}
		return pg.UpdateSimulationRunAsSuccess(ctx, id, params, currentPrice, tx)
	})
}

// GetSimulationRun returns nil when the id is unknown
func (pg *Postgres) GetSimulationRun(ctx context.Context, id uuid.UUID) (*m.SimulationRun, error) {
	res, err := QuerySingle[m.SimulationRun](ctx, pg, q.Get(q.QueryHelper.Select.SimulationRunById), pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("unable to query simulation run %s: %w", id, err)
	}
	return res, nil
}

func (pg *Postgres) GetSimulationBands(ctx context.Context, id uuid.UUID) (*m.SimulationResult, error) {
	rows, err := Query[m.SimulationBandRow](ctx, pg, q.Get(q.QueryHelper.Select.SimulationBandsByRunId), pgx.NamedArgs{"run_id": id})
	if err != nil {
		return nil, fmt.Errorf("unable to query simulation bands for %s: %w", id, err)
	}
	return m.ResultFromBandRows(rows), nil
}

func (pg *Postgres) DeleteSimulationRun(ctx context.Context, id uuid.UUID) error {
	if err := pg.exec(ctx, nil, q.Get(q.QueryHelper.Delete.SimulationRun), pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("error deleting simulation run %s: %w", id, err)
	}
	return nil
}
