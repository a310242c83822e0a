package expert

import "strings"

// ReportKind selects which text report expert_report produces (spec.md
// §4.6, §6).
type ReportKind int

const (
	ReportSQL ReportKind = iota
	ReportIndexes
	ReportPlan
	ReportCandidates // session-global; the id argument to Session.Report is ignored
)

// statementReport renders one of the per-statement report kinds. This is
// the Report Assembler (spec.md §4.6): a direct pass-through over fields
// already computed by SubmitSQL/Analyze, no further transformation.
func statementReport(stmt *Statement, candidates map[string]*CandidateIndex, order []string, kind ReportKind) string {
	switch kind {
	case ReportSQL:
		return stmt.OriginalSQL
	case ReportPlan:
		return stmt.PlanText
	case ReportIndexes:
		if len(stmt.ChosenIndexes) == 0 {
			return noNewIndexesReport
		}
		var sb strings.Builder
		for _, name := range order {
			if stmt.ChosenIndexes[name] {
				sb.WriteString(candidates[name].CreateSQL)
				sb.WriteByte('\n')
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// candidatesReport renders the CANDIDATES report: every installed
// candidate's CREATE SQL, one per line, in synthesis order.
func candidatesReport(candidates map[string]*CandidateIndex, order []string) string {
	var sb strings.Builder
	for _, name := range order {
		sb.WriteString(candidates[name].CreateSQL)
		sb.WriteByte('\n')
	}
	return sb.String()
}
