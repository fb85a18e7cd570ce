package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"waterqual/internal/sample"
)

// Flat tabular layouts for the export/download surface. Column order is
// fixed and matches the original data files.
var (
	userColumns = []string{
		"user_id", "username", "email", "password_hash", "registration_date",
	}
	predictionColumns = append([]string{
		"prediction_id", "user_id", "region", "state", "timestamp",
		"potability", "confidence",
	}, sample.Params...)
)

// ExportUsersCSV writes the full user table as CSV with a header row.
func (s *Store) ExportUsersCSV(w io.Writer) error {
	users, err := s.Users()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(userColumns); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrStorageIO, err)
	}
	for _, u := range users {
		row := []string{
			u.UserID, u.Username, u.Email, u.PasswordHash,
			u.RegistrationDate.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: write row: %v", ErrStorageIO, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportPredictionsCSV writes the full prediction table as CSV with a
// header row.
func (s *Store) ExportPredictionsCSV(w io.Writer) error {
	preds, err := s.AllPredictions()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(predictionColumns); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrStorageIO, err)
	}
	for _, p := range preds {
		row := []string{
			p.PredictionID, p.UserID, p.Region, p.State,
			p.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(p.Potability),
			strconv.FormatFloat(p.Confidence, 'g', -1, 64),
		}
		for _, name := range sample.Params {
			row = append(row, strconv.FormatFloat(p.Sample.Value(name), 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: write row: %v", ErrStorageIO, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportPredictionsCSV reads rows in the export layout and appends them,
// preserving the exported prediction ids. Re-importing an export therefore
// yields the identical record set.
func (s *Store) ImportPredictionsCSV(r io.Reader) (int, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: read header: %v", ErrStorageIO, err)
	}
	if len(header) != len(predictionColumns) {
		return 0, fmt.Errorf("%w: unexpected column count %d", ErrStorageIO, len(header))
	}

	n := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%w: read row: %v", ErrStorageIO, err)
		}

		p, err := predictionFromRow(row)
		if err != nil {
			return n, err
		}
		if _, err := s.AppendPrediction(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func predictionFromRow(row []string) (Prediction, error) {
	ts, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: parse timestamp %q: %v", ErrStorageIO, row[4], err)
	}
	pot, err := strconv.Atoi(row[5])
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: parse potability %q: %v", ErrStorageIO, row[5], err)
	}
	conf, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: parse confidence %q: %v", ErrStorageIO, row[6], err)
	}

	values := make(map[string]float64, len(sample.Params))
	for i, name := range sample.Params {
		v, err := strconv.ParseFloat(row[7+i], 64)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: parse %s %q: %v", ErrStorageIO, name, row[7+i], err)
		}
		values[name] = v
	}
	smp, err := sample.FromMap(values)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	return Prediction{
		PredictionID: row[0],
		UserID:       row[1],
		Region:       row[2],
		State:        row[3],
		Timestamp:    ts,
		Potability:   pot,
		Confidence:   conf,
		Sample:       smp,
	}, nil
}
