package llm

import (
	"strconv"
	"strings"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// BuildSystemPrompt assembles the fixed counselling instruction with the
// serialized risk context as the only factual grounding. Keeping the
// instruction strict (no recommendations, no bullets, 3-4 sentences) guards
// against the model inventing unsupported claims.
func BuildSystemPrompt(riskContext models.RiskContext, insights models.GuidanceResult) string {
	safeContext := sanitize(SerializeContext(riskContext, insights))
	return "You are a student success counsellor. Provide an empathetic explanation only. " +
		"Do not give recommendations, action steps, or questions. Do not use bullet points. " +
		"Use the student context provided. If data is missing, say so plainly. " +
		"Answer in 3-4 sentences." +
		"\n\nStudent context:\n" + safeContext
}

// SerializeContext renders the risk context as stable key: value lines.
func SerializeContext(riskContext models.RiskContext, insights models.GuidanceResult) string {
	recommendations := "none"
	if len(insights.Recommendations) > 0 {
		recommendations = strings.Join(insights.Recommendations, "; ")
	}

	lines := []string{
		"name: " + orUnknown(riskContext.Name),
		"register_number: " + orUnknown(riskContext.RegisterNumber),
		"risk_level: " + orUnknown(riskContext.RiskLevel),
		"risk_percent: " + formatPercent(riskContext.RiskPercent),
		"risk_trend: " + orUnknown(riskContext.RiskTrend),
		"trend_delta: " + formatDelta(riskContext.TrendDelta),
		"attendance: " + formatFloatPercent(riskContext.Attendance),
		"cgpa: " + formatFloat(riskContext.CGPA),
		"arrear_count: " + formatInt(riskContext.ArrearCount),
		"fees_paid: " + formatBool(riskContext.FeesPaid),
		"disciplinary_issues: " + formatInt(riskContext.DisciplinaryIssues),
		"last_prediction_at: " + formatTime(riskContext),
		"year: " + formatIntPtr(riskContext.Context.Year),
		"semester: " + formatIntPtr(riskContext.Context.Semester),
		"summary: " + orUnknown(insights.Summary),
		"recommendations: " + recommendations,
	}
	return strings.Join(lines, "\n")
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func formatPercent(value *int) string {
	if value == nil {
		return "unknown"
	}
	return strconv.Itoa(*value) + "%"
}

func formatDelta(value *float64) string {
	if value == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64) + "%"
}

func formatFloatPercent(value *float64) string {
	if value == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64) + "%"
}

func formatFloat(value *float64) string {
	if value == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func formatInt(value *int64) string {
	if value == nil {
		return "unknown"
	}
	return strconv.FormatInt(*value, 10)
}

func formatIntPtr(value *int) string {
	if value == nil {
		return "unknown"
	}
	return strconv.Itoa(*value)
}

func formatBool(value *bool) string {
	if value == nil {
		return "unknown"
	}
	if *value {
		return "yes"
	}
	return "no"
}

func formatTime(riskContext models.RiskContext) string {
	if riskContext.LastPredictionAt == nil {
		return "unknown"
	}
	return riskContext.LastPredictionAt.UTC().Format("2006-01-02T15:04:05Z")
}

// sanitize strips ASCII control characters before prompt interpolation.
func sanitize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= 0x20 || r == '\n' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
