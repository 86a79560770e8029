package tutor

import (
	"github.com/ashureev/freetalk/internal/domain"
)

// Greeting is the scripted reply to the first turn of every session.
const Greeting = "Hello! My name is friday, and I will be your personal English speaking trainer. " +
	"We’ll practice natural conversation and I’ll help you sound confident and fluent. " +
	"To begin, tell me something about your day!"

const freeTalkSystemPrompt = `
You are an English tutor having natural FREE CONVERSATION with an ADVANCED learner.

GOAL:
- Help the learner practice fluent English.
- The learner should speak MORE than you.
- Keep the conversation going with open questions.

RULES FOR ALL RESPONSES:
1) Respond naturally in 2–4 short sentences.
2) Then add a short correction labeled:
   Feedback: (correct only 1–2 important issues, simply)
3) End with an open question (reasons, examples, opinions).
4) Always reply in English only.
`

// SystemPrompt returns the tutoring instructions for free talk mode.
func SystemPrompt() string {
	return freeTalkSystemPrompt
}

// BuildPrompt assembles the message list sent to the generator: the system
// instructions, then the stored history, then the new user message.
func BuildPrompt(history []domain.Message, userMessage string) []domain.Message {
	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: SystemPrompt()})
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: userMessage})
	return msgs
}
