package store

import (
	"database/sql"
	"fmt"

	"github.com/nhartman/ecosort/internal/model"
)

type StationStore struct {
	db *sql.DB
}

func NewStationStore(db *sql.DB) *StationStore {
	return &StationStore{db: db}
}

const stationCols = `id, name, address`

// List returns all drop-off stations ordered by name.
func (s *StationStore) List() ([]model.Station, error) {
	rows, err := s.db.Query(`SELECT ` + stationCols + ` FROM stations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []model.Station
	for rows.Next() {
		var st model.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Address); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *StationStore) GetByID(id int64) (*model.Station, error) {
	row := s.db.QueryRow(`SELECT `+stationCols+` FROM stations WHERE id = ?`, id)
	var st model.Station
	err := row.Scan(&st.ID, &st.Name, &st.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return &st, nil
}
