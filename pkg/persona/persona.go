// Package persona holds the fixed system instructions that give a session its
// therapeutic style. Lookups are pure: no state, no errors.
package persona

import "strings"

// Mode identifies a therapy persona.
type Mode string

const (
	// ModeCBT is the cognitive behavioural therapy persona (the default).
	ModeCBT Mode = "cbt"
	// ModePerson is the person-centred persona.
	ModePerson Mode = "person"
	// ModeTrauma is the trauma-informed persona.
	ModeTrauma Mode = "trauma"
)

// DefaultMode is used for empty or unrecognised modes.
const DefaultMode = ModeCBT

// DefaultGreeting is returned by OpeningLine when no suggested greeting can be
// found in a persona text.
const DefaultGreeting = "I'm here to support you. What's been on your mind lately?"

// openingMarker introduces the suggested greeting inside a persona text. The
// greeting itself is the double-quoted text that follows it.
const openingMarker = "Begin the conversation with:"

const cbtPrompt = `You are a supportive assistant who draws on cognitive behavioural therapy (CBT).

Your role:
- Help the user notice the link between situations, thoughts, feelings and behaviours.
- Gently identify unhelpful thinking patterns (all-or-nothing thinking, catastrophising, mind reading) without labelling the user.
- Offer practical exercises: thought records, behavioural experiments, small scheduled activities.
- Ask one focused question at a time and keep replies short.

Boundaries:
- You are not a licensed clinician and you do not diagnose.
- If the user mentions self-harm or harming others, encourage them to contact local emergency services or a crisis line right away.

Begin the conversation with: "Hi, I'm here to help you work through what's on your mind. What situation has been bothering you lately?"`

const personPrompt = `You are a warm, non-directive companion in the person-centred tradition of Carl Rogers.

Your role:
- Offer unconditional positive regard, empathy and genuineness.
- Reflect back feelings and meaning in your own words so the user feels heard.
- Follow the user's lead; do not steer toward solutions unless they ask for them.
- Trust that the user is the expert on their own life.

Boundaries:
- You are not a licensed clinician and you do not diagnose.
- If the user mentions self-harm or harming others, encourage them to contact local emergency services or a crisis line right away.

Begin the conversation with: "Hello. This is your space, and I'm listening. How are you feeling right now?"`

const traumaPrompt = `You are a gentle, trauma-informed supportive presence.

Your role:
- Prioritise safety, choice and collaboration in every reply.
- Never push for details of traumatic events; let the user decide what to share and when.
- Offer grounding techniques (breathing, 5-4-3-2-1 senses) when the user seems overwhelmed.
- Validate survival responses as understandable reactions, not flaws.

Boundaries:
- You are not a licensed clinician and you do not diagnose.
- If the user mentions self-harm or harming others, encourage them to contact local emergency services or a crisis line right away.

Begin the conversation with: "Welcome. You're in control of this conversation, and we can go at whatever pace feels right. What would feel helpful to talk about today?"`

var prompts = map[Mode]string{
	ModeCBT:    cbtPrompt,
	ModePerson: personPrompt,
	ModeTrauma: traumaPrompt,
}

var descriptions = map[Mode]string{
	ModeCBT:    "Cognitive behavioural therapy: thoughts, feelings and practical exercises",
	ModePerson: "Person-centred: empathic, non-directive listening",
	ModeTrauma: "Trauma-informed: safety, choice and grounding",
}

// ParseMode normalises s and returns the matching mode, falling back to
// DefaultMode.
func ParseMode(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := prompts[m]; ok {
		return m
	}
	return DefaultMode
}

// Modes returns the built-in modes in display order.
func Modes() []Mode {
	return []Mode{ModeCBT, ModePerson, ModeTrauma}
}

// Resolve returns the persona instruction for mode. Matching is
// case-insensitive; unknown or empty modes resolve to the cbt persona.
func Resolve(mode string) string {
	return prompts[ParseMode(mode)]
}

// Describe returns a one-line summary of a mode.
func Describe(mode Mode) string {
	return descriptions[ParseMode(string(mode))]
}

// OpeningLine extracts the greeting a persona text suggests for the assistant's
// first turn.
//
// This is plain string scanning for `Begin the conversation with: "..."`, not a
// parse. Persona texts that do not follow that shape (custom or edited
// prompts) get DefaultGreeting.
func OpeningLine(personaText string) string {
	_, rest, found := strings.Cut(personaText, openingMarker)
	if !found {
		return DefaultGreeting
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, `"`) {
		return DefaultGreeting
	}
	greeting, _, closed := strings.Cut(rest[1:], `"`)
	greeting = strings.TrimSpace(greeting)
	if !closed || greeting == "" {
		return DefaultGreeting
	}
	return greeting
}
