// Package responder implements the offline conversational script that
// collects a lead turn by turn and answers keyword FAQs.
package responder

import (
	"fmt"
	"strings"

	"github.com/zulandar/showroom/internal/models"
)

// State is a step of the lead-collection script.
type State string

// Script states in order. StateDone is absorbing.
const (
	StateNone       State = "none"
	StateAskName    State = "ask-name"
	StateAskCompany State = "ask-company"
	StateAskContact State = "ask-contact"
	StateAskNeed    State = "ask-need"
	StateDone       State = "done"
)

// Reply is the bot output for one visitor turn.
type Reply struct {
	Prompt string            // state-driven message; always set for a non-empty turn
	FAQ    string            // canned answer, empty when no topic matched
	Topic  Topic             // matched FAQ topic, empty when none
	Draft  *models.LeadDraft // completed draft, set once on ask-need -> done
}

// Messages returns the bot messages of r in log order.
func (r Reply) Messages() []string {
	var out []string
	if r.Prompt != "" {
		out = append(out, r.Prompt)
	}
	if r.FAQ != "" {
		out = append(out, r.FAQ)
	}
	return out
}

// Script is one run of the collection script. It is not safe for
// concurrent use; each widget instance owns one.
type Script struct {
	state  State
	locale string
	text   Texts
	draft  models.LeadDraft
}

// NewScript starts a script in StateNone using the texts for locale.
func NewScript(locale string) *Script {
	loc, text := Lookup(locale)
	return &Script{state: StateNone, locale: loc, text: text}
}

// State returns the current state.
func (s *Script) State() State { return s.state }

// Locale returns the resolved locale of the script.
func (s *Script) Locale() string { return s.locale }

// Draft returns the fields captured so far.
func (s *Script) Draft() models.LeadDraft { return s.draft }

// Step advances the script with one visitor message. Empty input is a
// no-op and yields an empty Reply.
func (s *Script) Step(text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}
	}

	var r Reply
	switch s.state {
	case StateNone:
		r.Prompt = s.text.AskName
		s.state = StateAskName
	case StateAskName:
		s.draft.Name = text
		r.Prompt = fmt.Sprintf(s.text.AskCompany, text)
		s.state = StateAskCompany
	case StateAskCompany:
		s.draft.Company = text
		r.Prompt = s.text.AskContact
		s.state = StateAskContact
	case StateAskContact:
		s.draft.Contact = text
		r.Prompt = s.text.AskNeed
		s.state = StateAskNeed
	case StateAskNeed:
		s.draft.Need = text
		d := s.draft
		r.Draft = &d
		r.Prompt = s.text.Saved
		s.state = StateDone
	default:
		r.Prompt = s.text.AlreadyRecorded
	}

	if topic, ok := MatchFAQ(text); ok {
		r.Topic = topic
		r.FAQ = s.text.FAQ[topic]
	}
	return r
}
