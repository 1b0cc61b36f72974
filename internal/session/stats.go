package session

import (
	"context"
	"fmt"

	"github.com/zulandar/switchboard/internal/models"
)

// Stats holds session totals for the overview page.
type Stats struct {
	Total        int64                             `json:"total_sessions"`
	Messages     int64                             `json:"total_messages"`
	ByCompletion map[models.CompletionStatus]int64 `json:"by_completion_status"`
	ByQA         map[models.QAStatus]int64         `json:"by_qa_status"`
	ByArchive    map[models.ArchiveStatus]int64    `json:"by_archive_status"`
	BySource     map[models.Source]int64           `json:"by_source"`
}

// Stats counts sessions by completion, QA, archive status and source.
// Every known value is present in the maps, with zero when absent.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	s.refreshDecaying(ctx)

	st := &Stats{
		ByCompletion: make(map[models.CompletionStatus]int64),
		ByQA:         make(map[models.QAStatus]int64),
		ByArchive:    make(map[models.ArchiveStatus]int64),
		BySource:     make(map[models.Source]int64),
	}
	for _, c := range models.CompletionStatuses {
		st.ByCompletion[c] = 0
	}
	for _, q := range models.QAStatuses {
		st.ByQA[q] = 0
	}
	st.ByArchive[models.ArchiveActive] = 0
	st.ByArchive[models.ArchiveArchived] = 0
	for _, src := range models.Sources {
		st.BySource[src] = 0
	}

	type row struct {
		Grp string
		Cnt int64
	}
	group := func(column string) ([]row, error) {
		var rows []row
		err := s.db.WithContext(ctx).Model(&models.Session{}).
			Select(column + " AS grp, count(*) AS cnt").
			Group(column).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("session: stats by %s: %w", column, err)
		}
		return rows, nil
	}

	rows, err := group("completion_status")
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.ByCompletion[models.CompletionStatus(r.Grp)] += r.Cnt
		st.Total += r.Cnt
	}
	if rows, err = group("qa_status"); err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.ByQA[models.QAStatus(r.Grp)] += r.Cnt
	}
	if rows, err = group("archive_status"); err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.ByArchive[models.ArchiveStatus(r.Grp)] += r.Cnt
	}
	if rows, err = group("source"); err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.BySource[models.Source(r.Grp)] += r.Cnt
	}

	if err := s.db.WithContext(ctx).Model(&models.Message{}).Count(&st.Messages).Error; err != nil {
		return nil, fmt.Errorf("session: count messages: %w", err)
	}
	return st, nil
}
