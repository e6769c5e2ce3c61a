package domain

// TrackedIdentity is a LeetCode account polled for accepted submissions.
type TrackedIdentity struct {
	Identifier  string
	DisplayName string
}

// Destination is the single chat that receives reports.
type Destination struct {
	ChannelID string
}

// Command is an operator instruction received from the messaging transport.
type Command struct {
	ChatID  string
	Private bool
	Sender  string
	Name    string
	Args    []string
}
