package service

import (
	"strconv"
	"strings"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// guidanceRule couples one trigger condition with the recommendation and
// follow-up question it contributes. Rules are evaluated in fixed order and
// each appends at most once, which keeps the trigger-order contract explicit.
type guidanceRule struct {
	triggered      func(g guidanceInput) bool
	recommendation string
	question       string
}

type guidanceInput struct {
	level              string
	riskPercent        *int
	trend              string
	attendance         *float64
	cgpa               *float64
	arrearCount        *int64
	feesPaid           *bool
	disciplinaryIssues *int64
	hasPrediction      bool
}

var guidanceRules = []guidanceRule{
	{
		triggered:      func(g guidanceInput) bool { return g.trend == models.TrendRising },
		recommendation: "Schedule a check-in with your faculty advisor within 7 days.",
		question:       "Are there recent changes affecting your study routine?",
	},
	{
		triggered:      func(g guidanceInput) bool { return g.attendance != nil && *g.attendance < 75 },
		recommendation: "Create an attendance recovery plan (target 80%+ this month).",
		question:       "What are the main reasons behind missed classes?",
	},
	{
		triggered:      func(g guidanceInput) bool { return g.cgpa != nil && *g.cgpa < 6.5 },
		recommendation: "Enroll in subject tutoring for your lowest-performing course.",
		question:       "Which topics feel most challenging right now?",
	},
	{
		triggered:      func(g guidanceInput) bool { return g.arrearCount != nil && *g.arrearCount > 0 },
		recommendation: "Prioritize clearing arrears with a weekly study schedule.",
		question:       "Which arrear subject needs the most support?",
	},
	{
		triggered:      func(g guidanceInput) bool { return g.feesPaid != nil && !*g.feesPaid },
		recommendation: "Contact the finance office for a payment plan or fee support.",
		question:       "Do you need help connecting with the finance team?",
	},
	{
		triggered:      func(g guidanceInput) bool { return g.disciplinaryIssues != nil && *g.disciplinaryIssues > 0 },
		recommendation: "Book a wellbeing session to discuss support strategies.",
		question:       "Would you like help with behavioural or personal support resources?",
	},
}

const maxFollowUpQuestions = 3

// GenerateGuidance maps a risk context to deterministic counselling
// guidance. It is pure and must never fail: it doubles as the offline
// fallback when every AI backend is unavailable.
func GenerateGuidance(riskContext models.RiskContext) models.GuidanceResult {
	g := newGuidanceInput(riskContext)

	urgency := models.UrgencyPending
	if g.hasPrediction {
		switch {
		case isHighRisk(g):
			urgency = models.UrgencyHigh
		case isMediumRisk(g):
			urgency = models.UrgencyMedium
		default:
			urgency = models.UrgencyLow
		}
	}

	recommendations := []string{}
	questions := []string{}

	if g.hasPrediction {
		for _, rule := range guidanceRules {
			if rule.triggered(g) {
				recommendations = append(recommendations, rule.recommendation)
				questions = append(questions, rule.question)
			}
		}
	}

	if !g.hasPrediction {
		recommendations = append(recommendations, "Request a new prediction to unlock personalized guidance.")
		questions = append(questions, "Would you like help requesting a prediction from your faculty?")
	} else if len(recommendations) == 0 {
		recommendations = append(recommendations, "Maintain your current study routine and review progress monthly.")
		questions = append(questions, "Is there any area where you would like extra guidance?")
	}

	if len(questions) > maxFollowUpQuestions {
		questions = questions[:maxFollowUpQuestions]
	}

	return models.GuidanceResult{
		Summary:           summaryFor(urgency),
		Urgency:           urgency,
		Recommendations:   recommendations,
		SupportMessage:    supportMessageFor(urgency),
		FollowUpQuestions: questions,
	}
}

// GenerateChatReply answers a free-form question with rule-based guidance.
// Keyword categories are mutually exclusive: the first match wins.
func GenerateChatReply(riskContext models.RiskContext, question string) models.ChatReply {
	base := GenerateGuidance(riskContext)
	focus := focusFor(riskContext, strings.ToLower(question))

	parts := make([]string, 0, 3)
	for _, part := range []string{base.Summary, focus, base.SupportMessage} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return models.ChatReply{
		Reply:             strings.Join(parts, " "),
		Recommendations:   base.Recommendations,
		FollowUpQuestions: base.FollowUpQuestions,
		Urgency:           base.Urgency,
	}
}

func newGuidanceInput(riskContext models.RiskContext) guidanceInput {
	level := strings.ToUpper(riskContext.RiskLevel)
	if level == "" {
		level = models.RiskLevelUnknown
	}
	trend := strings.ToUpper(riskContext.RiskTrend)
	if trend == "" {
		trend = models.TrendStable
	}

	return guidanceInput{
		level:              level,
		riskPercent:        riskContext.RiskPercent,
		trend:              trend,
		attendance:         riskContext.Attendance,
		cgpa:               riskContext.CGPA,
		arrearCount:        riskContext.ArrearCount,
		feesPaid:           riskContext.FeesPaid,
		disciplinaryIssues: riskContext.DisciplinaryIssues,
		hasPrediction:      level != models.RiskLevelUnknown || riskContext.RiskPercent != nil,
	}
}

// The categorical level is authoritative when present; the numeric
// threshold only decides for contexts without a known level.
func isHighRisk(g guidanceInput) bool {
	switch g.level {
	case models.RiskLevelHigh:
		return true
	case models.RiskLevelMedium, models.RiskLevelLow:
		return false
	}
	return g.riskPercent != nil && *g.riskPercent >= 70
}

func isMediumRisk(g guidanceInput) bool {
	switch g.level {
	case models.RiskLevelMedium:
		return true
	case models.RiskLevelHigh, models.RiskLevelLow:
		return false
	}
	return g.riskPercent != nil && *g.riskPercent >= 40
}

func summaryFor(urgency string) string {
	switch urgency {
	case models.UrgencyPending:
		return "Prediction not available yet. Run a prediction to generate personalized guidance."
	case models.UrgencyHigh:
		return "Risk is high. Immediate support and a structured plan are recommended."
	case models.UrgencyMedium:
		return "Risk is moderate. Focus on consistent attendance and study habits."
	default:
		return "Risk appears low. Continue steady progress and monitor monthly."
	}
}

func supportMessageFor(urgency string) string {
	switch urgency {
	case models.UrgencyPending:
		return "Once a prediction is generated, your guidance will appear here."
	case models.UrgencyHigh:
		return "Support is available. Lets build a recovery plan together."
	case models.UrgencyMedium:
		return "You are close to a strong track. A few adjustments can make a big difference."
	default:
		return "Great momentum. Keep it steady and ask for help early if needed."
	}
}

func focusFor(riskContext models.RiskContext, question string) string {
	switch {
	case strings.Contains(question, "attendance"):
		if riskContext.Attendance != nil {
			return "Your attendance is " + formatNumber(*riskContext.Attendance) + "%. Aim for 80%+ to stay on track."
		}
		return "Attendance data is not available yet. Ask your faculty to update it."
	case strings.Contains(question, "cgpa") || strings.Contains(question, "gpa"):
		if riskContext.CGPA != nil {
			return "Your CGPA is " + formatNumber(*riskContext.CGPA) + ". Focus on your lowest-performing subjects first."
		}
		return "CGPA data is not available yet. Ask your faculty to update it."
	case strings.Contains(question, "risk") || strings.Contains(question, "dropout"):
		if riskContext.RiskPercent != nil {
			return "Your current dropout risk is " + strconv.Itoa(*riskContext.RiskPercent) + "%. Lets focus on attendance and study habits."
		}
		return "Risk data is not available yet. Request a prediction from your faculty."
	case strings.Contains(question, "fees"):
		return "If fees are a concern, contact the finance office to explore payment plans."
	case strings.Contains(question, "arrear") || strings.Contains(question, "backlog"):
		return "Prioritize clearing arrears with a weekly study schedule and targeted tutoring."
	case strings.Contains(question, "discipline") || strings.Contains(question, "behav"):
		return "Consider a wellbeing session to address behavioral or personal support needs."
	case strings.Contains(question, "stress") || strings.Contains(question, "anxiety") || strings.Contains(question, "mental"):
		return "It is okay to ask for help. Reach out to a counselor or trusted faculty member."
	}
	return ""
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
