package entity

import "time"

// EmailMessage is one inbound deal email: the decoded plain-text body plus
// the mailbox label that selects the parsing grammar.
type EmailMessage struct {
	ID         string
	Label      string
	Body       string
	ReceivedAt time.Time
}
