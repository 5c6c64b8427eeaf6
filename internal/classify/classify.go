// Package classify assigns a prompt to exactly one task category from a
// closed set using rule-based keyword and pattern matching. Rules are
// evaluated in a fixed priority order so overlapping prompts resolve
// deterministically; anything unmatched falls back to TaskOther.
package classify

import (
	"regexp"
	"strings"
)

// TaskType is a closed-set category describing the nature of a request.
type TaskType string

const (
	TaskCodeGeneration  TaskType = "code-generation"
	TaskDataAnalysis    TaskType = "data-analysis"
	TaskSummarization   TaskType = "summarization"
	TaskCreativeWriting TaskType = "creative-writing"
	TaskQuestionAnswer  TaskType = "question-answering"
	TaskOther           TaskType = "other"
)

// taskRule matches a category by keywords and an optional regex. A rule
// matches when any keyword occurs, or when the regex matches.
type taskRule struct {
	task     TaskType
	keywords []string
	pattern  *regexp.Regexp
}

// taskRules is evaluated top to bottom; the first match wins. Code beats
// data-analysis beats summarization so that "summarize this script" keeps
// its summarization intent only when no stronger signal is present.
var taskRules = []taskRule{
	{
		task: TaskCodeGeneration,
		keywords: []string{
			"code", "function", "script", "debug", "implement", "refactor",
			"compile", "regex", "sql query", "class ", "algorithm",
		},
		pattern: regexp.MustCompile("```|\\bdef\\b|\\bfunc\\b|\\bpublic\\s+static\\b"),
	},
	{
		task: TaskDataAnalysis,
		keywords: []string{
			"data", "dataset", "statistics", "statistical", "chart", "graph",
			"correlation", "regression", "trend", "median", "average",
		},
	},
	{
		task: TaskSummarization,
		keywords: []string{
			"summarize", "summarise", "summary", "tldr", "tl;dr",
			"key points", "condense", "in brief",
		},
	},
	{
		task: TaskCreativeWriting,
		keywords: []string{
			"story", "poem", "fiction", "creative", "haiku", "lyrics",
			"screenplay", "novel",
		},
		pattern: regexp.MustCompile(`(?i)write\s+(me\s+)?a\s+(short\s+)?(story|poem|song|essay)`),
	},
	{
		task:    TaskQuestionAnswer,
		pattern: regexp.MustCompile(`\?`),
		keywords: []string{
			"what is", "what are", "who is", "why does", "why do", "how does",
			"how do", "when did", "where is", "explain",
		},
	},
}

// Classify returns the task type for the prompt. It is a pure function:
// identical input always yields an identical result.
func Classify(prompt string) TaskType {
	lower := strings.ToLower(prompt)
	if strings.TrimSpace(lower) == "" {
		return TaskOther
	}

	for _, r := range taskRules {
		if r.matches(prompt, lower) {
			return r.task
		}
	}
	return TaskOther
}

func (r taskRule) matches(prompt, lower string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(prompt)
}

// All returns every task type in priority order, TaskOther last. Useful for
// validation and for exhaustive reporting.
func All() []TaskType {
	return []TaskType{
		TaskCodeGeneration,
		TaskDataAnalysis,
		TaskSummarization,
		TaskCreativeWriting,
		TaskQuestionAnswer,
		TaskOther,
	}
}
