package analyzer

// Keyword tables for category classification. Matching is lowercase
// substring matching; the category with the most hits wins and ties fall
// back to conversational.

var categoryKeywords = map[Category][]string{
	CategoryFactual: {
		"what is", "who is", "where is", "when did", "when was",
		"how many", "how much", "how old", "how far", "how long",
		"capital", "population", "definition", "define", "fact",
		"date of", "year did", "distance", "height", "weight",
	},
	CategoryConversational: {
		"hello", "hi there", "hey", "thanks", "thank you",
		"how are you", "good morning", "good evening", "nice to",
		"tell me about yourself", "chat", "talk to me", "opinion",
	},
	CategoryCreative: {
		"write a story", "write a poem", "poem", "story about",
		"imagine", "compose", "fiction", "invent", "creative",
		"brainstorm", "make up", "lyrics", "screenplay", "character",
	},
	CategoryCoding: {
		"function", "code", "python", "javascript", "golang",
		"debug", "bug", "algorithm", "implement", "refactor",
		"compile", "script", "api", "sort a list", "class",
		"unit test", "regex", "sql", "stack trace", "error message",
	},
	CategoryAnalytical: {
		"analyze", "analysis", "compare", "comparison", "evaluate",
		"pros and cons", "trade-off", "tradeoff", "statistics",
		"data", "trend", "summarize", "breakdown", "assess",
	},
	CategoryReasoning: {
		"why does", "explain why", "reason", "logic", "prove",
		"deduce", "infer", "step by step", "think through",
		"puzzle", "riddle", "solve", "what would happen if",
	},
	CategorySpecialized: {
		"medical", "diagnosis", "legal", "contract", "tax",
		"financial", "investment", "chemistry", "physics",
		"quantum", "genome", "clinical", "regulation", "patent",
	},
}

// modelAffinity maps categories to per-model affinity scores. Scores are
// blended with affinityBaseline so every configured model, known or not,
// lands in [0,1].
var modelAffinity = map[Category]map[string]float64{
	CategoryCoding: {
		"deepseek": 0.9,
		"claude":   0.75,
		"gpt":      0.7,
		"gemini":   0.6,
	},
	CategoryCreative: {
		"gpt":      0.85,
		"gemini":   0.8,
		"claude":   0.7,
		"deepseek": 0.5,
	},
	CategoryAnalytical: {
		"claude":   0.9,
		"gpt":      0.75,
		"deepseek": 0.65,
		"gemini":   0.6,
	},
	CategoryReasoning: {
		"claude":   0.85,
		"deepseek": 0.8,
		"gpt":      0.75,
		"gemini":   0.6,
	},
	CategoryFactual: {
		"gpt":      0.8,
		"gemini":   0.75,
		"claude":   0.7,
		"deepseek": 0.6,
	},
	CategoryConversational: {
		"gpt":      0.75,
		"claude":   0.75,
		"gemini":   0.7,
		"deepseek": 0.55,
	},
	CategorySpecialized: {
		"claude":   0.8,
		"deepseek": 0.75,
		"gpt":      0.7,
		"gemini":   0.65,
	},
}

const (
	// affinityBaseline is the score for a model the affinity matrix does not
	// know about, and the floor component of blended scores.
	affinityBaseline = 0.5

	// affinityBlend is the weight of the matrix score against the baseline.
	affinityBlend = 0.8
)

// affinityScore returns the blended recommendation score for one model under
// one category.
func affinityScore(category Category, model string) float64 {
	affinities, ok := modelAffinity[category]
	if !ok {
		return affinityBaseline
	}
	score, ok := affinities[model]
	if !ok {
		return affinityBaseline
	}
	return clamp01(affinityBlend*score + (1-affinityBlend)*affinityBaseline)
}
