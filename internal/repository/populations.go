package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
)

func (r *Repository) InsertPopulationSnapshot(snapshot *domain.PopulationSnapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO populations (generation, participants, rounds, venues)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	params := []any{snapshot.Generation, snapshot.Participants, snapshot.Rounds, snapshot.Venues}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&snapshot.ID, &snapshot.CreatedAt); err != nil {
		return err
	}

	for i := range snapshot.Individuals {
		individual := &snapshot.Individuals[i]

		query := `
			INSERT INTO population_individuals (population_id, position)
			VALUES ($1, $2)
			RETURNING id
		`

		if err := tx.QueryRowContext(ctx, query, snapshot.ID, individual.Position).Scan(&individual.ID); err != nil {
			return err
		}

		// 一个个体的所有基因通过 unnest 一次性插入
		query = `
			INSERT INTO population_genes (individual_id, row_index, column_index, value)
			SELECT $1, g.row_index, g.column_index, g.value
			FROM unnest($2::int[], $3::int[], $4::int[]) AS g(row_index, column_index, value)
		`

		rows, cols, values := geneColumns(individual.Genes)
		if _, err := tx.ExecContext(ctx, query, individual.ID, rows, cols, values); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllPopulations 只返回快照的元信息，按创建时间倒序
func (r *Repository) GetAllPopulations() ([]*domain.PopulationSnapshot, error) {
	query := `
		SELECT id, generation, participants, rounds, venues, created_at
		FROM populations
		ORDER BY created_at DESC, id DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	populations := []*domain.PopulationSnapshot{}
	for rows.Next() {
		var p domain.PopulationSnapshot
		dst := []any{&p.ID, &p.Generation, &p.Participants, &p.Rounds, &p.Venues, &p.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		populations = append(populations, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return populations, nil
}

func (r *Repository) GetPopulationSnapshot(id int64) (*domain.PopulationSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT generation, participants, rounds, venues, created_at
		FROM populations
		WHERE id = $1
	`

	snapshot := &domain.PopulationSnapshot{
		ID: id,
	}

	dst := []any{&snapshot.Generation, &snapshot.Participants, &snapshot.Rounds, &snapshot.Venues, &snapshot.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT pi.id, pi.position, pg.row_index, pg.column_index, pg.value
		FROM population_individuals pi
		LEFT JOIN population_genes pg ON pi.id = pg.individual_id
		WHERE pi.population_id = $1
		ORDER BY pi.position, pg.row_index, pg.column_index
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot.Individuals = []domain.Individual{}
	for rows.Next() {
		var row struct {
			individualID int64
			position     int
			rowIndex     sql.NullInt32
			columnIndex  sql.NullInt32
			value        sql.NullInt32
		}

		dst := []any{&row.individualID, &row.position, &row.rowIndex, &row.columnIndex, &row.value}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		n := len(snapshot.Individuals)
		if n == 0 || snapshot.Individuals[n-1].ID != row.individualID {
			snapshot.Individuals = append(snapshot.Individuals, domain.Individual{
				ID:       row.individualID,
				Position: row.position,
				Genes:    []domain.Gene{},
			})
			n++
		}

		if !row.rowIndex.Valid {
			// 没有任何基因的个体，按理来说不会出现
			continue
		}

		snapshot.Individuals[n-1].Genes = append(snapshot.Individuals[n-1].Genes, domain.Gene{
			Row:    int(row.rowIndex.Int32),
			Column: int(row.columnIndex.Int32),
			Value:  int(row.value.Int32),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (r *Repository) DeletePopulation(id int64) error {
	query := `
		DELETE FROM populations WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *Repository) DeleteAllPopulations() error {
	query := `
		DELETE FROM populations
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query); err != nil {
		return err
	}

	return nil
}

func geneColumns(genes []domain.Gene) (rows, cols, values []int32) {
	rows = make([]int32, len(genes))
	cols = make([]int32, len(genes))
	values = make([]int32, len(genes))
	for i, gene := range genes {
		rows[i] = int32(gene.Row)
		cols[i] = int32(gene.Column)
		values[i] = int32(gene.Value)
	}
	return rows, cols, values
}
