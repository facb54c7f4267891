package followup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/segmentio/ksuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var exportHeader = []string{
	"program_date", "target_type", "target_name", "target_phone",
	"volunteer", "status", "channel", "notes",
}

type ExportResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}

// Export writes the day's call list as CSV and returns a download link.
func (s *Service) Export(ctx context.Context, day time.Time) (*ExportResult, error) {
	if s.exporter == nil {
		return nil, apperr.Unavailable("exports are not configured")
	}

	day = models.Day(day)
	rows, err := s.followUps.List(ctx, store.FollowUpFilter{ProgramDate: &day})
	if err != nil {
		return nil, errors.Wrap(err, "listing follow-ups")
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, s.volunteerNames(ctx, rows)); err != nil {
		return nil, errors.Wrap(err, "writing export")
	}

	key := fmt.Sprintf("exports/followups-%s-%s.csv", day.Format("2006-01-02"), ksuid.New().String())
	url, err := s.exporter.Put(ctx, key, "text/csv", &buf)
	if err != nil {
		return nil, errors.Wrap(err, "uploading export")
	}
	return &ExportResult{URL: url, Key: key, Rows: len(rows)}, nil
}

func (s *Service) volunteerNames(ctx context.Context, rows []models.FollowUp) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string)
	for _, f := range rows {
		if _, ok := names[f.AssignedTo]; ok {
			continue
		}
		names[f.AssignedTo] = f.AssignedTo.Hex()
		if u, err := s.accounts.GetByID(ctx, f.AssignedTo); err == nil && u.Name != "" {
			names[f.AssignedTo] = u.Name
		}
	}
	return names
}

// WriteCSV renders follow-ups with display labels for their status.
func WriteCSV(w io.Writer, rows []models.FollowUp, volunteers map[primitive.ObjectID]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, f := range rows {
		volunteer, ok := volunteers[f.AssignedTo]
		if !ok {
			volunteer = f.AssignedTo.Hex()
		}
		record := []string{
			f.ProgramDate.Format("2006-01-02"),
			string(f.TargetType),
			f.TargetName,
			f.TargetPhone,
			volunteer,
			Label(f.Status),
			f.Channel,
			f.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
