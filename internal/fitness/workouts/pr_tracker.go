package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// IsNewPR reports whether weight strictly beats the current record.
// A set without weight counts as 0 and can never beat it.
func IsNewPR(weight *float64, current float64) bool {
	w := 0.0
	if weight != nil {
		w = *weight
	}
	return w > current
}

// lockPersonalRecord reads the exercise watermark and holds the row lock until tx ends,
// so concurrent sets of the same exercise are compared one after another.
// A missing exercise reads as 0, and the insert that follows then fails on
// the exercise foreign key.
func lockPersonalRecord(ctx context.Context, tx pgx.Tx, exerciseID int) (float64, error) {
	var current float64
	err := tx.QueryRow(
		ctx,
		`SELECT personal_record FROM exercise WHERE id = $1 FOR UPDATE;`,
		exerciseID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Warnf("personal record: exercise %d not found, insert will fail on the foreign key", exerciseID)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock personal record: %w", err)
	}
	return current, nil
}

// raisePersonalRecord only ever moves the watermark up.
func raisePersonalRecord(ctx context.Context, tx pgx.Tx, exerciseID int, weight float64) error {
	tag, err := tx.Exec(
		ctx,
		`UPDATE exercise SET personal_record = $2 WHERE id = $1 AND personal_record < $2;`,
		exerciseID, weight,
	)
	if err != nil {
		return fmt.Errorf("raise personal record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warnf("personal record of exercise %d not raised to %.2f", exerciseID, weight)
	}
	return nil
}
