package vital

import (
	"time"

	"github.com/google/uuid"
)

// Vital maps to the vitals table. Every measurement is optional; a reading
// records only what was taken that day.
type Vital struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	Date        time.Time `db:"date" json:"date"`
	BP          *string   `db:"bp" json:"bp"`
	Sugar       *float64  `db:"sugar" json:"sugar"`
	Weight      *float64  `db:"weight" json:"weight"`
	Pulse       *float64  `db:"pulse" json:"pulse"`
	Temperature *float64  `db:"temperature" json:"temperature"`
	Notes       *string   `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Averages holds per-field means over a user's readings. A field is nil when
// no reading recorded it.
type Averages struct {
	Sugar       *float64 `json:"sugar"`
	Weight      *float64 `json:"weight"`
	Pulse       *float64 `json:"pulse"`
	Temperature *float64 `json:"temperature"`
}
