package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Record is the persisted form of one credential. Password holds the
// encrypted token text, never the plaintext.
type Record struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoadRecords reads the data file. A missing file is an empty vault.
func LoadRecords(p Paths) (map[string]Record, error) {
	records := make(map[string]Record)

	data, err := readFile(p.DataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return records, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	if records == nil {
		records = make(map[string]Record)
	}
	return records, nil
}

// SaveRecords rewrites the whole data file with records.
func SaveRecords(p Paths, records map[string]Record, mode WriteMode) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	if err := writeFile(p, p.DataPath(), data, mode); err != nil {
		return fmt.Errorf("save data file: %w", err)
	}
	return nil
}
