package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"time"
)

var csvHeader = []string{
	"id", "created_at", "actor", "action", "target_type", "target_id",
	"organization_id", "before", "after", "ip", "user_agent", "request_id", "metadata",
}

// ExportCSV writes every entry matching criteria to w, newest first.
// Pagination fields of criteria are ignored; the view is streamed in pages of MaxLimit.
// It returns the number of exported entries.
func (r *Reader) ExportCSV(ctx context.Context, w io.Writer, criteria Criteria) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, errors.Join(ErrExportFailed, err)
	}

	criteria.Limit = MaxLimit
	criteria.Offset = 0

	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return written, errors.Join(ErrExportFailed, err)
		}

		entries, err := r.Find(ctx, criteria)
		if err != nil {
			return written, errors.Join(ErrExportFailed, err)
		}

		for _, e := range entries {
			row, err := csvRow(e)
			if err != nil {
				return written, errors.Join(ErrExportFailed, err)
			}
			if err := cw.Write(row); err != nil {
				return written, errors.Join(ErrExportFailed, err)
			}
			written++
		}

		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, errors.Join(ErrExportFailed, err)
		}

		if len(entries) < criteria.Limit {
			return written, nil
		}
		criteria.Offset += criteria.Limit
	}
}

func csvRow(e Entry) ([]string, error) {
	orgID := ""
	if e.OrganizationID != nil {
		orgID = e.OrganizationID.String()
	}

	metadata := ""
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(raw)
	}

	return []string{
		e.ID.String(),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.Actor,
		e.Action,
		e.TargetType,
		e.TargetID,
		orgID,
		string(e.Before),
		string(e.After),
		e.IP,
		e.UserAgent,
		e.RequestID,
		metadata,
	}, nil
}
