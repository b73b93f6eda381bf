package tracking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// QueryFilter selects decode events for the history commands
type QueryFilter struct {
	// Time range; DatePreset wins over StartTime/EndTime, which win over Days
	StartTime  *time.Time
	EndTime    *time.Time
	Days       int
	DatePreset string

	Source     string // substring of the source URL
	FileType   string
	Command    string
	SessionID  string
	FailedOnly bool

	Limit  int
	Offset int
}

// TimeRange resolves the filter's time options to Unix seconds. A zero
// start means no lower bound.
func (q *QueryFilter) TimeRange(now time.Time) (start, end int64) {
	end = now.Unix()

	switch {
	case q.DatePreset != "":
		from, to, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, end
		}
		if from.IsZero() {
			return 0, to.Unix()
		}
		return from.Unix(), to.Unix()
	case q.StartTime != nil || q.EndTime != nil:
		if q.StartTime != nil {
			start = q.StartTime.Unix()
		}
		if q.EndTime != nil {
			end = q.EndTime.Unix()
		}
		return start, end
	case q.Days > 0:
		return now.AddDate(0, 0, -q.Days).Unix(), end
	}
	return 0, end
}

func (q *QueryFilter) hasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// BuildWhereClause returns the SQL condition and its arguments, evaluated
// against the current time. The condition is empty when nothing filters.
func (q *QueryFilter) BuildWhereClause() (string, []any) {
	return q.BuildWhereClauseAt(time.Now())
}

// BuildWhereClauseAt is BuildWhereClause with an explicit current time
func (q *QueryFilter) BuildWhereClauseAt(now time.Time) (string, []any) {
	var clauses []string
	var args []any

	if q.hasTimeFilter() {
		start, end := q.TimeRange(now)
		if start > 0 {
			clauses = append(clauses, "timestamp >= ?")
			args = append(args, start)
		}
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, end)
	}
	if q.Source != "" {
		clauses = append(clauses, `source_url LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Source)+"%")
	}
	if q.FileType != "" {
		clauses = append(clauses, "file_type = ?")
		args = append(args, q.FileType)
	}
	if q.Command != "" {
		clauses = append(clauses, "command = ?")
		args = append(args, q.Command)
	}
	if q.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.FailedOnly {
		clauses = append(clauses, "error_code != 0")
	}

	where := strings.Join(clauses, " AND ")
	slog.Debug("built where clause", "clause", where, "arg_count", len(args))
	return where, args
}

// limitClause renders LIMIT/OFFSET, or nothing when no limit is set
func (q *QueryFilter) limitClause() string {
	if q.Limit <= 0 {
		return ""
	}
	if q.Offset > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}
	return fmt.Sprintf(" LIMIT %d", q.Limit)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ParseDatePreset converts a preset name to a time range. "all" returns a
// zero start.
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	today := startOfDay(now)
	week := startOfWeek(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	switch preset {
	case "today":
		return today, now, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), today, nil
	case "week", "this-week":
		return week, now, nil
	case "last-week":
		return week.AddDate(0, 0, -7), week, nil
	case "month", "this-month":
		return month, now, nil
	case "last-month":
		return month.AddDate(0, -1, 0), month, nil
	case "all", "all-time":
		return time.Time{}, now, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown preset: %s", preset)
}

// ParseNaturalDate parses expressions such as "2 days ago" or "last
// monday" relative to now
func ParseNaturalDate(input string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(input, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", input, err)
	}
	slog.Debug("parsed natural language date", "input", input, "result", result)
	return result, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding Monday at midnight
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t.AddDate(0, 0, -offset))
}
