package engine

import (
	"github.com/lingotab/lingotab/internal/domain"
)

// Merge layers next over prior by record key. Keys only in prior survive,
// keys in both take next's value, error sentinels included: a retry run
// that fails again keeps its fresh failure reason. Inputs are not mutated.
func Merge(prior, next domain.Table) domain.Table {
	merged := make(domain.Table, len(prior)+len(next))
	for groupID, entries := range prior {
		copied := make(map[string]domain.Result, len(entries))
		for key, res := range entries {
			copied[key] = res
		}
		merged[groupID] = copied
	}
	for groupID, entries := range next {
		target, ok := merged[groupID]
		if !ok {
			target = make(map[string]domain.Result, len(entries))
			merged[groupID] = target
		}
		for key, res := range entries {
			target[key] = res
		}
	}
	return merged
}

// BuildHeader returns the output column row: the record columns followed
// by each group's columns. With metadata enabled a group contributes its
// output column plus Category and Reasoning variants, otherwise just the
// output column. Groups without an explicit OutputColumn use their name.
func BuildHeader(groups []*domain.Group, includeMetadata bool) []string {
	header := []string{"key", "source", "text"}
	for _, group := range groups {
		base := outputColumn(group)
		header = append(header, base)
		if includeMetadata {
			header = append(header, base+" Category", base+" Reasoning")
		}
	}
	return header
}

// BuildRows renders the table as rows aligned with BuildHeader, one per
// record in input order. Absent entries render as empty cells, never as
// sentinels.
func BuildRows(table domain.Table, records []domain.Record, groups []*domain.Group, includeMetadata bool) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := []string{record.Key, record.Source, record.Text}
		for _, group := range groups {
			res, _ := table.Get(group.ID, record.Key)
			row = append(row, res.Translation)
			if includeMetadata {
				row = append(row, res.Category, res.Reasoning)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func outputColumn(group *domain.Group) string {
	if group.OutputColumn != "" {
		return group.OutputColumn
	}
	return group.Name
}
