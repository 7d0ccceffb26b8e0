package suggestions

import (
	"context"
	"strings"
)

type template struct {
	kind    string
	content string
}

type category struct {
	name      string
	keywords  []string
	templates []template
}

// categories are matched in order; the first keyword hit wins
var categories = []category{
	{
		name:     "time_management",
		keywords: []string{"time", "schedule", "busy", "deadline", "procrastination", "productivity", "organize"},
		templates: []template{
			{TypeSolution, "Create a priority matrix to identify urgent vs important tasks. Use time-blocking to dedicate specific hours to key activities, and eliminate or delegate low-priority items."},
			{TypeInsight, "Time management is really energy management. Your productivity peaks at different times - identify when you're most focused and schedule your hardest tasks then."},
			{TypeAction, "Right now, write down your top 3 priorities for tomorrow and block out 2-hour focused work sessions for each one."},
		},
	},
	{
		name:     "relationships",
		keywords: []string{"relationship", "friends", "family", "partner", "conflict", "communication", "social"},
		templates: []template{
			{TypeSolution, "Practice active listening by reflecting back what the other person says before responding. Set clear boundaries and communicate your needs directly but kindly."},
			{TypeInsight, "Most relationship conflicts stem from unmet expectations that were never clearly communicated. Focus on understanding rather than being understood."},
			{TypeAction, `Schedule a calm conversation to discuss the issue. Start with "I feel..." statements instead of "You always..." accusations.`},
		},
	},
	{
		name:     "career",
		keywords: []string{"job", "career", "work", "boss", "interview", "promotion", "salary", "workplace"},
		templates: []template{
			{TypeSolution, "Document your achievements and quantify your impact with numbers. Network within your industry and seek mentorship from someone in your desired position."},
			{TypeInsight, "Career growth often comes from solving problems others avoid. Look for pain points in your organization and position yourself as the solution."},
			{TypeAction, "Update your LinkedIn profile today and reach out to one person in your field for a 15-minute informational interview this week."},
		},
	},
	{
		name:     "health",
		keywords: []string{"health", "fitness", "exercise", "diet", "stress", "anxiety", "sleep", "mental"},
		templates: []template{
			{TypeSolution, "Start with small, sustainable changes like a 10-minute daily walk or adding one vegetable to each meal. Focus on consistency over perfection."},
			{TypeInsight, "Health is a system, not a goal. Your physical, mental, and emotional well-being are interconnected - improving one area naturally benefits the others."},
			{TypeAction, "Choose one healthy habit to start tomorrow - even if it's just drinking one extra glass of water. Track it for 7 days."},
		},
	},
	{
		name:     "finance",
		keywords: []string{"money", "budget", "debt", "savings", "investment", "expense", "financial"},
		templates: []template{
			{TypeSolution, "Track all expenses for a month to understand spending patterns. Create a budget with the 50/30/20 rule: 50% needs, 30% wants, 20% savings and debt repayment."},
			{TypeInsight, "Wealth building is about behavior, not income. People with modest incomes who save consistently often outperform high earners who spend everything."},
			{TypeAction, "Open a separate savings account today and set up an automatic transfer of even $25 per week. Start building the habit immediately."},
		},
	},
	{
		name:     "learning",
		keywords: []string{"learn", "study", "skill", "education", "course", "knowledge", "improve"},
		templates: []template{
			{TypeSolution, "Use the Feynman Technique: explain the concept in simple terms as if teaching a child. Practice spaced repetition and connect new information to what you already know."},
			{TypeInsight, "Learning is most effective when it's active and applied. Instead of just consuming information, immediately find ways to use or teach what you've learned."},
			{TypeAction, "Dedicate 15 minutes today to practice one specific skill. Set a timer and focus on deliberate practice rather than passive consumption."},
		},
	},
	{
		name:     "technology",
		keywords: []string{"computer", "software", "app", "technical", "digital", "online", "internet"},
		templates: []template{
			{TypeSolution, "Break the technical problem into smaller components. Search for each specific error message or issue separately, and check official documentation first."},
			{TypeInsight, "Most technical problems have been solved before. The key is asking the right questions and understanding the underlying concepts, not just copying solutions."},
			{TypeAction, "Write down the exact error message or describe the specific behavior you're seeing. Search for this exact phrase in forums or documentation."},
		},
	},
	{
		name:     "personal",
		keywords: []string{"confidence", "motivation", "habit", "goal", "self-improvement", "personal growth"},
		templates: []template{
			{TypeSolution, "Set small, achievable goals to build momentum. Celebrate small wins and focus on progress, not perfection. Surround yourself with supportive people who believe in your growth."},
			{TypeInsight, "Personal growth happens outside your comfort zone, but not in your panic zone. Find the sweet spot where you're challenged but not overwhelmed."},
			{TypeAction, "Identify one small action you can take today that aligns with who you want to become. Do it, then acknowledge yourself for taking that step."},
		},
	},
}

var generalCategory = category{
	name: "general",
	templates: []template{
		{TypeSolution, "Break the problem into smaller, manageable parts. Focus on what you can control and take one concrete action step, even if it's small."},
		{TypeInsight, "Every problem contains the seeds of its own solution. Sometimes the challenge is exactly what you need to grow and develop new capabilities."},
		{TypeAction, "Write down three possible approaches to this problem. Choose the simplest one and take the first step today."},
	},
}

// TemplateGenerator answers from canned suggestions picked by keyword category.
// It never fails.
type TemplateGenerator struct {
	ids *idSource
}

// NewTemplateGenerator creates a template generator
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{ids: newIDSource()}
}

// Name implements Generator
func (g *TemplateGenerator) Name() string { return "template" }

// Generate implements Generator
func (g *TemplateGenerator) Generate(_ context.Context, problem string) ([]Suggestion, error) {
	cat := categorize(problem)

	out := make([]Suggestion, 0, len(cat.templates))
	for _, t := range cat.templates {
		out = append(out, g.ids.stamp(Suggestion{Type: t.kind, Content: t.content}))
	}
	return out, nil
}

// categorize returns the first category whose keyword appears in problem
func categorize(problem string) category {
	lower := strings.ToLower(problem)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c
			}
		}
	}
	return generalCategory
}
