package attendance

import "math"

// SubjectSummary holds the counts for a single subject.
type SubjectSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Percent float64 `json:"percent"`
}

// Overview aggregates every record a user has.
type Overview struct {
	TotalDays      int                       `json:"total_days"`
	TotalPresent   int                       `json:"total_present"`
	TotalAbsent    int                       `json:"total_absent"`
	TotalClasses   int                       `json:"total_classes"`
	OverallPercent float64                   `json:"overall_percent"`
	Subjects       map[string]SubjectSummary `json:"subjects"`
}

// ComputeOverview folds records into totals and per-subject percentages.
// Cancelled and no-lecture entries are ignored entirely; unset entries show
// up as a subject row but are not counted.
func ComputeOverview(records []Record) Overview {
	ov := Overview{Subjects: make(map[string]SubjectSummary)}
	for _, rec := range records {
		ov.TotalDays++
		for _, entry := range rec.Classes {
			if entry.Status.Skipped() {
				continue
			}
			sub := ov.Subjects[entry.Subject]
			switch entry.Status {
			case StatusPresent:
				sub.Present++
				ov.TotalPresent++
				ov.TotalClasses++
			case StatusAbsent:
				sub.Absent++
				ov.TotalAbsent++
				ov.TotalClasses++
			}
			ov.Subjects[entry.Subject] = sub
		}
	}

	for name, sub := range ov.Subjects {
		sub.Percent = percent(sub.Present, sub.Present+sub.Absent)
		ov.Subjects[name] = sub
	}
	ov.OverallPercent = percent(ov.TotalPresent, ov.TotalClasses)
	return ov
}

// percent returns part/whole as a percentage rounded to two decimals, or 0
// when whole is 0.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
