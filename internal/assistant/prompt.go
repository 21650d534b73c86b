package assistant

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var structureTmpl = template.Must(template.New("structure").Parse(`You are an AI assistant helping parents track their baby's activities. Convert the following voice input into a structured log entry.

Voice input: "{{.Transcript}}"
Current time: {{.Now}}

Analyze this and return a JSON response with the following structure:

{
  "type": "feeding" | "sleep" | "diaper" | "note",
  "timestamp": "ISO8601 timestamp (current time if not specified)",
  "notes": "any additional notes or context",
  "feeding": {  // only if type is "feeding"
    "method": "nurse_left" | "nurse_right" | "bottle",
    "amount": number or null,  // oz or ml
    "duration": number or null,  // minutes
    "unit": "oz" | "ml" | null
  },
  "sleep": {  // only if type is "sleep"
    "startTime": "ISO8601 timestamp",
    "endTime": "ISO8601 timestamp" or null,
    "totalMinutes": number or null
  },
  "diaper": {  // only if type is "diaper"
    "wet": boolean,
    "dirty": boolean
  }
}

Guidelines:
- If time is mentioned (like "2am", "3:15pm"), use that for the timestamp
- For feeding: "nursed left/right side" = nurse_left/nurse_right, "bottle" = bottle
- For sleep: if duration is mentioned, calculate totalMinutes
- For diapers: "wet", "pee" = wet:true, "dirty", "poop", "poopy" = dirty:true
- If unclear what type, make your best guess based on context
- Keep notes concise and relevant
- Use current time if no specific time is mentioned

Common patterns:
- "fed the baby at 2am, nursed left side 15 minutes"
- "diaper change, poop, 3:15am"
- "baby slept from 10pm to 2am"
- "bottle feeding, 4 ounces"
- "wet diaper"

Return ONLY the JSON response, no additional text.
`))

var chatTmpl = template.Must(template.New("chat").Parse(`You are a helpful AI assistant for new parents using a baby tracking app called Baby Talk.

IMPORTANT: You are NOT a medical professional and should never provide medical advice. Always remind parents to consult their pediatrician for medical concerns.

{{.Profile}}

Recent activity:
{{range .Activity}}{{.}}
{{else}}No recent activity
{{end}}
User question: "{{.Message}}"

Provide helpful, supportive, and factual information about:
- General baby care tips
- Feeding patterns and schedules
- Sleep patterns and tips
- Normal ranges for baby activities
- When to consider contacting a healthcare provider
- Interpreting tracking data and patterns

Be warm, supportive, and understanding - parenting is hard! Keep responses concise but helpful.

Always include a reminder to consult their pediatrician for specific medical questions or concerns.
`))

var insightsTmpl = template.Must(template.New("insights").Parse(`You are a helpful AI assistant for new parents using a baby tracking app called Baby Talk.

IMPORTANT: You are NOT a medical professional and should never provide medical advice.

{{.Profile}}

Last 7 days ({{.Stats.DaysWithData}} days with data):
- Feedings per day: {{printf "%.1f" .Stats.AvgFeedings}}
- Sleep per day: {{.SleepPerDay}}
- Diaper changes per day: {{printf "%.1f" .Stats.AvgDiapers}}

Recent activity:
{{range .Activity}}{{.}}
{{else}}No recent activity
{{end}}
Write 3 short observations about the patterns above (feeding rhythm, sleep, diapers). Point out anything that changed recently. Keep each observation to one or two sentences and end with a reminder to consult their pediatrician about any concern.
`))

type structureData struct {
	Transcript string
	Now        string
}

type chatData struct {
	Profile  string
	Activity []string
	Message  string
}

type insightsData struct {
	Profile     string
	Activity    []string
	Stats       model.WeekStats
	SleepPerDay string
}

// StructurePrompt builds the extraction prompt for a transcript.
func StructurePrompt(transcript string, now time.Time) (string, error) {
	return render(structureTmpl, structureData{
		Transcript: transcript,
		Now:        now.Format(time.RFC3339),
	})
}

// ChatPrompt builds the chat prompt around message.
func ChatPrompt(message string, profile *model.BabyProfile, recent []model.LogEntry, now time.Time, loc *time.Location) (string, error) {
	return render(chatTmpl, chatData{
		Profile:  profileLine(profile, now),
		Activity: activityLines(recent, loc),
		Message:  message,
	})
}

// InsightsPrompt builds the weekly pattern prompt.
func InsightsPrompt(stats model.WeekStats, profile *model.BabyProfile, recent []model.LogEntry, now time.Time, loc *time.Location) (string, error) {
	return render(insightsTmpl, insightsData{
		Profile:     profileLine(profile, now),
		Activity:    activityLines(recent, loc),
		Stats:       stats,
		SleepPerDay: timecalc.FormatMinutes(int(stats.AvgSleepMinutes + 0.5)),
	})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func profileLine(p *model.BabyProfile, now time.Time) string {
	if p == nil {
		return "No baby profile set"
	}
	return fmt.Sprintf("Baby: %s, %s", p.Name, p.AgeDescription(now))
}

// activityLines renders "<Type> at <time>: <summary>" per entry.
func activityLines(entries []model.LogEntry, loc *time.Location) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s at %s: %s", e.Type().DisplayName(), e.TimeString(loc), e.DisplaySummary()))
	}
	return lines
}
